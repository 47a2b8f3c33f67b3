package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/groq-transcribe/internal/queue"
	"github.com/codebuildervaibhav/groq-transcribe/internal/transcription"
	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

const (
	endOfStream    = "END"
	streamFilename = "stream.webm"
)

// messageConn is the part of a WebSocket connection the stream protocol uses
type messageConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
}

// StreamHandler handles WebSocket audio streaming
type StreamHandler struct {
	pool      Submitter
	maxSizeMB int
	logger    *zap.SugaredLogger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(pool Submitter, maxSizeMB int, logger *zap.SugaredLogger) *StreamHandler {
	return &StreamHandler{
		pool:      pool,
		maxSizeMB: maxSizeMB,
		logger:    logger,
	}
}

// Handle serves GET /ws/stream. Binary frames carry audio, a text frame
// names the file, and "END" asks for the transcript.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()
	h.serve(context.Background(), c)
}

func (h *StreamHandler) serve(ctx context.Context, conn messageConn) {
	var (
		buffer   bytes.Buffer
		filename = streamFilename
		maxSize  = h.maxSizeMB * 1024 * 1024
	)

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			h.logger.Warnf("WebSocket closed before %s: %v", endOfStream, err)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			msg := string(message)
			if msg == endOfStream {
				h.finish(ctx, conn, filename, buffer.Bytes())
				return
			}
			if !transcription.ValidateAudioFormat(msg) {
				h.reply(conn, streamError(fmt.Sprintf("Unsupported audio format: %q", msg)))
				return
			}
			filename = transcription.AudioFilename(msg)

		case websocket.BinaryMessage:
			if buffer.Len()+len(message) > maxSize {
				h.reply(conn, streamError(fmt.Sprintf("Stream too large (max %dMB)", h.maxSizeMB)))
				return
			}
			buffer.Write(message)
		}
	}
}

func (h *StreamHandler) finish(ctx context.Context, conn messageConn, filename string, data []byte) {
	if len(data) == 0 {
		h.reply(conn, streamError("No audio received"))
		return
	}

	h.logger.Infof("Stream complete: %s (%d bytes)", filename, len(data))

	audio := transcription.Audio{Filename: filename, Data: append([]byte(nil), data...)}
	result, err := h.pool.Submit(ctx, queue.NewJob(requestName(audio), types.SourceStream, audio))
	if err != nil {
		h.logger.Errorw("Stream transcription error", "error", err, "filename", filename)
		h.reply(conn, streamError(err.Error()))
		return
	}

	h.reply(conn, map[string]string{"id": result.ID, "text": result.Text})
}

func (h *StreamHandler) reply(conn messageConn, body map[string]string) {
	payload, err := json.Marshal(body)
	if err != nil {
		h.logger.Errorf("Failed to encode stream reply: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Warnf("Failed to write stream reply: %v", err)
	}
}

func streamError(message string) map[string]string {
	return map[string]string{"error": message}
}
