package transcription

import (
	"fmt"
	"math"
	"strings"

	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

// FormatTimestamp renders a segment offset as "(M:SS)" from its whole seconds.
// Minutes are not wrapped into hours.
func FormatTimestamp(start float64) string {
	if math.IsNaN(start) || start < 0 {
		start = 0
	}
	ts := int64(math.Floor(start))
	return fmt.Sprintf("(%d:%02d)", ts/60, ts%60)
}

// FormatTranscript joins segments in provider order as "(M:SS) text" pairs
// separated by single spaces. Segment text is used as returned.
func FormatTranscript(segments []types.Segment) string {
	if len(segments) == 0 {
		return ""
	}

	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = FormatTimestamp(seg.Start) + " " + seg.Text
	}
	return strings.Join(parts, " ")
}
