package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceStream = "stream"
	SourceGDrive = "gdrive"
)

// TranscriptionResult represents the provider output plus the formatted text
type TranscriptionResult struct {
	ID          string
	RequestName string
	SourceType  string
	Filename    string
	Text        string // formatted "(M:SS) ..." transcript
	RawText     string // provider's flat transcript
	Language    string
	Duration    float64
	Segments    []Segment
	WordCount   int
	ProcessedAt time.Time
	LocalPath   string
	GDriveURL   string
}

// Segment represents a timestamped segment of transcription
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
