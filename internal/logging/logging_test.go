package logging

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogBufferKeepsLastLines(t *testing.T) {
	lb := NewLogBuffer()
	for i := 0; i < maxBufferedLines+5; i++ {
		fmt.Fprintf(lb, "line %d\n", i)
	}

	logs := lb.GetLogs()
	require.Len(t, logs, maxBufferedLines)
	require.Equal(t, "line 5\n", logs[0])
	require.Equal(t, fmt.Sprintf("line %d\n", maxBufferedLines+4), logs[len(logs)-1])
}

func TestLogBufferReturnsCopy(t *testing.T) {
	lb := NewLogBuffer()
	fmt.Fprint(lb, "first")

	logs := lb.GetLogs()
	logs[0] = "changed"
	require.Equal(t, "first", lb.GetLogs()[0])
}

func TestLoggerWritesJSONToBuffer(t *testing.T) {
	lb := NewLogBuffer()
	logger := NewWithWriter(lb, false)

	logger.Debugw("hidden")
	logger.Infow("Transcription error", "filename", "clip.mp3")
	require.NoError(t, logger.Sync())

	logs := lb.GetLogs()
	require.Len(t, logs, 1)
	require.True(t, strings.Contains(logs[0], `"msg":"Transcription error"`))
	require.True(t, strings.Contains(logs[0], `"filename":"clip.mp3"`))
}
