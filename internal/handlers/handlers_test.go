package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/groq-transcribe/internal/queue"
	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

type fakePool struct {
	mu   sync.Mutex
	jobs []*queue.Job
	err  error
}

func (p *fakePool) Submit(_ context.Context, job *queue.Job) (*types.TranscriptionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	if p.err != nil {
		return nil, p.err
	}
	return &types.TranscriptionResult{ID: job.ID, Text: "(0:00) hello"}, nil
}

type frame struct {
	kind int
	data []byte
	err  error
}

type fakeConn struct {
	frames  []frame
	written [][]byte
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	if len(c.frames) == 0 {
		return 0, nil, io.EOF
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	return f.kind, f.data, f.err
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) reply(t *testing.T) map[string]string {
	t.Helper()
	require.Len(t, c.written, 1)
	var out map[string]string
	require.NoError(t, json.Unmarshal(c.written[0], &out))
	return out
}

func text(s string) frame   { return frame{kind: websocket.TextMessage, data: []byte(s)} }
func binary(b string) frame { return frame{kind: websocket.BinaryMessage, data: []byte(b)} }

func TestStreamTranscribesBufferedAudio(t *testing.T) {
	pool := &fakePool{}
	h := NewStreamHandler(pool, 1, zap.NewNop().Sugar())
	conn := &fakeConn{frames: []frame{text("meeting.ogg"), binary("abc"), binary("def"), text("END")}}

	h.serve(context.Background(), conn)

	require.Len(t, pool.jobs, 1)
	job := pool.jobs[0]
	require.Equal(t, types.SourceStream, job.SourceType)
	require.Equal(t, "meeting.ogg", job.Audio.Filename)
	require.Equal(t, []byte("abcdef"), job.Audio.Data)

	out := conn.reply(t)
	require.Equal(t, "(0:00) hello", out["text"])
	require.Equal(t, job.ID, out["id"])
}

func TestStreamDefaultsFilename(t *testing.T) {
	pool := &fakePool{}
	h := NewStreamHandler(pool, 1, zap.NewNop().Sugar())
	conn := &fakeConn{frames: []frame{binary("abc"), text("END")}}

	h.serve(context.Background(), conn)

	require.Len(t, pool.jobs, 1)
	require.Equal(t, "stream.webm", pool.jobs[0].Audio.Filename)
}

func TestStreamWithoutAudio(t *testing.T) {
	pool := &fakePool{}
	h := NewStreamHandler(pool, 1, zap.NewNop().Sugar())
	conn := &fakeConn{frames: []frame{text("END")}}

	h.serve(context.Background(), conn)

	require.Empty(t, pool.jobs)
	require.Equal(t, "No audio received", conn.reply(t)["error"])
}

func TestStreamRejectsUnsupportedName(t *testing.T) {
	pool := &fakePool{}
	h := NewStreamHandler(pool, 1, zap.NewNop().Sugar())
	conn := &fakeConn{frames: []frame{text("notes.txt"), binary("abc"), text("END")}}

	h.serve(context.Background(), conn)

	require.Empty(t, pool.jobs)
	require.Contains(t, conn.reply(t)["error"], "Unsupported audio format")
}

func TestStreamRejectsOversizedAudio(t *testing.T) {
	pool := &fakePool{}
	h := NewStreamHandler(pool, 1, zap.NewNop().Sugar())
	chunk := strings.Repeat("a", 600*1024)
	conn := &fakeConn{frames: []frame{binary(chunk), binary(chunk), text("END")}}

	h.serve(context.Background(), conn)

	require.Empty(t, pool.jobs)
	require.Equal(t, "Stream too large (max 1MB)", conn.reply(t)["error"])
}

func TestStreamClosedBeforeEnd(t *testing.T) {
	pool := &fakePool{}
	h := NewStreamHandler(pool, 1, zap.NewNop().Sugar())
	conn := &fakeConn{frames: []frame{binary("abc"), {err: errors.New("connection reset")}}}

	h.serve(context.Background(), conn)

	require.Empty(t, pool.jobs)
	require.Empty(t, conn.written)
}

func TestStreamReportsTranscriptionError(t *testing.T) {
	pool := &fakePool{err: errors.New("groq transcription failed: rate limited")}
	h := NewStreamHandler(pool, 1, zap.NewNop().Sugar())
	conn := &fakeConn{frames: []frame{binary("abc"), text("END")}}

	h.serve(context.Background(), conn)

	require.Equal(t, "groq transcription failed: rate limited", conn.reply(t)["error"])
}

func TestExtractGDriveFileID(t *testing.T) {
	tests := map[string]string{
		"https://drive.google.com/file/d/1AbC_def-GHI/view?usp=sharing": "1AbC_def-GHI",
		"https://drive.google.com/open?id=1AbC_def-GHI":                 "1AbC_def-GHI",
		"https://drive.google.com/uc?export=download&id=XYZ123":         "XYZ123",
		"1aBcDeFgHiJkLmNoPqRsTuVwXyZ012":                                "1aBcDeFgHiJkLmNoPqRsTuVwXyZ012",
		"https://example.com/audio.mp3":                                 "",
		"short":                                                         "",
	}

	for url, want := range tests {
		require.Equal(t, want, extractGDriveFileID(url), url)
	}
}

func newGDriveApp(t *testing.T, pool Submitter, drive http.HandlerFunc) *fiber.App {
	t.Helper()
	server := httptest.NewServer(drive)
	t.Cleanup(server.Close)

	h := NewGDriveHandler(pool, 1, zap.NewNop().Sugar())
	h.downloadURL = server.URL + "/uc?id="

	app := fiber.New()
	app.Post("/api/transcribe/gdrive", h.Handle)
	return app
}

func postJSON(t *testing.T, app *fiber.App, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe/gdrive", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestGDriveTranscribesDownload(t *testing.T) {
	pool := &fakePool{}
	var requestedID string
	app := newGDriveApp(t, pool, func(w http.ResponseWriter, r *http.Request) {
		requestedID = r.URL.Query().Get("id")
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Disposition", `attachment; filename="standup.mp3"`)
		_, _ = w.Write([]byte("fake mp3 data"))
	})

	status, out := postJSON(t, app, `{"url":"https://drive.google.com/file/d/FILE_123/view","name":"standup"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "(0:00) hello", out["text"])
	require.Equal(t, "FILE_123", requestedID)

	require.Len(t, pool.jobs, 1)
	job := pool.jobs[0]
	require.Equal(t, types.SourceGDrive, job.SourceType)
	require.Equal(t, "standup", job.RequestName)
	require.Equal(t, "standup.mp3", job.Audio.Filename)
	require.Equal(t, []byte("fake mp3 data"), job.Audio.Data)
}

func TestGDriveFallsBackToFileIDName(t *testing.T) {
	pool := &fakePool{}
	app := newGDriveApp(t, pool, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("fake mp3 data"))
	})

	status, _ := postJSON(t, app, `{"url":"https://drive.google.com/open?id=FILE_123"}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "FILE_123.mp3", pool.jobs[0].Audio.Filename)
	require.Equal(t, "FILE_123.mp3", pool.jobs[0].RequestName)
}

func TestGDriveValidation(t *testing.T) {
	pool := &fakePool{}
	app := newGDriveApp(t, pool, func(w http.ResponseWriter, r *http.Request) {
		t.Error("drive should not be contacted")
	})

	status, out := postJSON(t, app, `{"url":""}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "URL is required", out["error"])

	status, out = postJSON(t, app, `{"url":"https://example.com/x.mp3"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid Google Drive URL", out["error"])

	status, out = postJSON(t, app, `not json`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid request body", out["error"])

	require.Empty(t, pool.jobs)
}

func TestGDrivePrivateFile(t *testing.T) {
	pool := &fakePool{}
	app := newGDriveApp(t, pool, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>Sign in</html>"))
	})

	status, out := postJSON(t, app, `{"url":"https://drive.google.com/file/d/FILE_123/view"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, out["error"], "File not accessible")
	require.Empty(t, pool.jobs)
}

func TestGDriveTooLarge(t *testing.T) {
	pool := &fakePool{}
	app := newGDriveApp(t, pool, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte(strings.Repeat("a", 1024*1024+1)))
	})

	status, out := postJSON(t, app, `{"url":"https://drive.google.com/file/d/FILE_123/view"}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "File too large (max 1MB)", out["error"])
	require.Empty(t, pool.jobs)
}

func TestGDriveTranscriptionError(t *testing.T) {
	pool := &fakePool{err: errors.New("groq transcription failed: bad audio")}
	app := newGDriveApp(t, pool, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("fake mp3 data"))
	})

	status, out := postJSON(t, app, `{"url":"https://drive.google.com/file/d/FILE_123/view"}`)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "groq transcription failed: bad audio", out["error"])
}
