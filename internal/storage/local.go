package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

// LocalStorage handles saving transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
	model     string
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir, model string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		model:     model,
	}
}

// OutputDir returns the archive root
func (ls *LocalStorage) OutputDir() string {
	return ls.outputDir
}

// SaveTranscript writes the formatted transcript and a metadata JSON file
// under a dated directory and returns the transcript path
func (ls *LocalStorage) SaveTranscript(result *types.TranscriptionResult) (string, error) {
	// outputs/2025/01/23/
	at := result.ProcessedAt
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", at.Year()),
		fmt.Sprintf("%02d", at.Month()),
		fmt.Sprintf("%02d", at.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create date directory")
	}

	// 20250123_143022_podcast_episode
	baseFilename := archiveBaseName(result)

	txtPath := filepath.Join(dateDir, baseFilename+".txt")
	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")

	if err := os.WriteFile(txtPath, []byte(result.Text), 0644); err != nil {
		return "", errors.Wrap(err, "failed to save transcript")
	}

	metaJSON, err := json.MarshalIndent(transcriptMetadata(result, ls.model, txtPath), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal metadata")
	}

	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", errors.Wrap(err, "failed to save metadata")
	}

	return txtPath, nil
}

func archiveBaseName(result *types.TranscriptionResult) string {
	return fmt.Sprintf("%s_%s", result.ProcessedAt.Format("20060102_150405"), sanitizeFilename(result.RequestName))
}

func transcriptMetadata(result *types.TranscriptionResult, model, localPath string) map[string]interface{} {
	return map[string]interface{}{
		"id":               result.ID,
		"request_name":     result.RequestName,
		"source_type":      result.SourceType,
		"filename":         result.Filename,
		"duration_seconds": result.Duration,
		"word_count":       result.WordCount,
		"model_used":       model,
		"language":         result.Language,
		"created_at":       result.ProcessedAt,
		"segments":         result.Segments,
		"local_path":       localPath,
	}
}

// maxNameBytes leaves room for the timestamp prefix and suffixes under the
// 255-byte file name limit
const maxNameBytes = 100

// sanitizeFilename keeps a name usable as a single path element
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	result := strings.Trim(replacer.Replace(strings.TrimSpace(name)), "._")
	if result == "" {
		result = "untitled"
	}
	if len(result) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		result = result[:cut]
	}
	return result
}
