package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/groq-transcribe/internal/queue"
	"github.com/codebuildervaibhav/groq-transcribe/internal/transcription"
	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

// Submitter runs a transcription job and waits for the result
type Submitter interface {
	Submit(ctx context.Context, job *queue.Job) (*types.TranscriptionResult, error)
}

// UploadHandler handles multipart audio uploads
type UploadHandler struct {
	pool      Submitter
	maxSizeMB int
	logger    *zap.SugaredLogger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(pool Submitter, maxSizeMB int, logger *zap.SugaredLogger) *UploadHandler {
	return &UploadHandler{
		pool:      pool,
		maxSizeMB: maxSizeMB,
		logger:    logger,
	}
}

// Handle answers POST /api/transcribe
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		h.logger.Errorw("Transcription error", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	files := form.File["file"]
	if len(files) == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "No file uploaded")
	}
	file := files[0]

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB))
	}

	f, err := file.Open()
	if err != nil {
		h.logger.Errorw("Transcription error", "error", err, "filename", file.Filename)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Errorw("Transcription error", "error", err, "filename", file.Filename)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	audio := transcription.Audio{Filename: file.Filename, Data: data}
	result, err := h.pool.Submit(c.UserContext(), queue.NewJob(requestName(audio), types.SourceUpload, audio))
	if err != nil {
		return h.fail(c, err, file.Filename)
	}

	return c.JSON(fiber.Map{"text": result.Text})
}

func (h *UploadHandler) fail(c *fiber.Ctx, err error, filename string) error {
	if errors.Is(err, transcription.ErrEmptyAudio) {
		return errorJSON(c, fiber.StatusBadRequest, "Uploaded file is empty")
	}
	h.logger.Errorw("Transcription error", "error", err, "filename", filename)
	return errorJSON(c, fiber.StatusInternalServerError, err.Error())
}

// requestName prefers the audio's title tag over its filename
func requestName(audio transcription.Audio) string {
	if title := transcription.ReadTitle(audio.Data); title != "" {
		return title
	}
	return transcription.AudioFilename(audio.Filename)
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
