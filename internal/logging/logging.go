package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxBufferedLines = 1000

// LogBuffer keeps the most recent log lines in memory for GET /logs
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

// NewLogBuffer creates an empty buffer
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{lines: make([]string, 0, maxBufferedLines)}
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	if len(lb.lines) > maxBufferedLines {
		lb.lines = lb.lines[len(lb.lines)-maxBufferedLines:]
	}

	return len(p), nil
}

// Sync satisfies zapcore.WriteSyncer
func (lb *LogBuffer) Sync() error {
	return nil
}

// GetLogs returns a copy of the buffered lines, oldest first
func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// New builds a production-style JSON logger writing to stdout and to buf
func New(buf *LogBuffer, debug bool) *zap.SugaredLogger {
	return NewWithWriter(io.MultiWriter(os.Stdout, buf), debug)
}

// NewWithWriter builds the logger on an arbitrary writer
func NewWithWriter(w io.Writer, debug bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core, zap.AddCaller()).Sugar()
}
