package transcription

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// defaultFilename is sent when the client gave no name; the provider needs
// one to infer the container format
const defaultFilename = "audio.webm"

// AudioFilename returns the base name of the upload or a default
func AudioFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultFilename
	}
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return defaultFilename
	}
	return base
}

// ValidateAudioFormat checks if the file extension is one the provider accepts
func ValidateAudioFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	supportedFormats := []string{".flac", ".mp3", ".mp4", ".mpeg", ".mpga", ".m4a", ".ogg", ".opus", ".wav", ".webm"}

	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// ReadTitle returns the embedded title tag (ID3, MP4, FLAC, OGG), or ""
func ReadTitle(data []byte) string {
	meta, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(meta.Title())
}
