package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/groq-transcribe/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RecordReader reads archived transcripts
type RecordReader interface {
	ListTranscripts(limit int) ([]*storage.Record, error)
	GetTranscript(id string) (*storage.Record, error)
}

// HistoryHandler exposes the transcript archive
type HistoryHandler struct {
	records RecordReader
	logger  *zap.SugaredLogger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(records RecordReader, logger *zap.SugaredLogger) *HistoryHandler {
	return &HistoryHandler{records: records, logger: logger}
}

// List answers GET /transcripts?limit=N
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	records, err := h.records.ListTranscripts(limit)
	if err != nil {
		h.logger.Errorw("Failed to list transcripts", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(records)
}

// Text answers GET /transcripts/:id/text with the formatted transcript
func (h *HistoryHandler) Text(c *fiber.Ctx) error {
	rec, err := h.records.GetTranscript(c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Transcript not found")
	}
	if err != nil {
		h.logger.Errorw("Failed to read transcript", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.SendString(rec.Text)
}
