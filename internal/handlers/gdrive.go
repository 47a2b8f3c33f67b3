package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/groq-transcribe/internal/queue"
	"github.com/codebuildervaibhav/groq-transcribe/internal/transcription"
	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

const driveDownloadURL = "https://drive.google.com/uc?export=download&id="

var (
	driveFilePathRe = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	driveIDParamRe  = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	driveBareIDRe   = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// GDriveHandler transcribes audio shared through a Google Drive link
type GDriveHandler struct {
	pool        Submitter
	maxSizeMB   int
	client      *http.Client
	downloadURL string
	logger      *zap.SugaredLogger
}

// NewGDriveHandler creates a new Google Drive handler
func NewGDriveHandler(pool Submitter, maxSizeMB int, logger *zap.SugaredLogger) *GDriveHandler {
	return &GDriveHandler{
		pool:        pool,
		maxSizeMB:   maxSizeMB,
		client:      &http.Client{Timeout: 5 * time.Minute},
		downloadURL: driveDownloadURL,
		logger:      logger,
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Handle answers POST /api/transcribe/gdrive
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if req.URL == "" {
		return errorJSON(c, fiber.StatusBadRequest, "URL is required")
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid Google Drive URL")
	}

	h.logger.Infof("Downloading from Google Drive: %s", fileID)

	httpReq, err := http.NewRequestWithContext(c.UserContext(), http.MethodGet, h.downloadURL+fileID, nil)
	if err != nil {
		h.logger.Errorw("Drive request error", "error", err, "file_id", fileID)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		h.logger.Errorw("Failed to download from Google Drive", "error", err, "file_id", fileID)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to download file from Google Drive")
	}
	defer resp.Body.Close()

	// private files and the large-file virus-scan page come back as HTML
	if resp.StatusCode != http.StatusOK || strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return errorJSON(c, fiber.StatusBadRequest, "File not accessible (may be private or doesn't exist)")
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		h.logger.Errorw("Failed to read Google Drive download", "error", err, "file_id", fileID)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	if int64(len(data)) > maxSize {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB))
	}

	audio := transcription.Audio{Filename: driveFilename(resp, fileID), Data: data}
	name := req.Name
	if name == "" {
		name = requestName(audio)
	}

	result, err := h.pool.Submit(c.UserContext(), queue.NewJob(name, types.SourceGDrive, audio))
	if err != nil {
		h.logger.Errorw("Transcription error", "error", err, "file_id", fileID)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{"text": result.Text})
}

// driveFilename takes the name Drive sends in Content-Disposition, falling
// back to the file id with an mp3 extension
func driveFilename(resp *http.Response, fileID string) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			return transcription.AudioFilename(name)
		}
	}
	return fileID + ".mp3"
}

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(url string) string {
	// https://drive.google.com/file/d/{ID}/view
	if matches := driveFilePathRe.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	// https://drive.google.com/open?id={ID}
	if matches := driveIDParamRe.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	// bare ID
	if matches := driveBareIDRe.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	return ""
}
