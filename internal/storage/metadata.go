package storage

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

// ErrNotFound is returned when no transcript matches an id
var ErrNotFound = errors.New("transcript not found")

// Record is one archived transcript row
type Record struct {
	ID           string    `json:"id"`
	RequestName  string    `json:"request_name"`
	SourceType   string    `json:"source_type"`
	Filename     string    `json:"filename"`
	Language     string    `json:"language"`
	Duration     float64   `json:"duration"`
	SegmentCount int       `json:"segment_count"`
	WordCount    int       `json:"word_count"`
	LocalPath    string    `json:"local_path"`
	GDriveURL    string    `json:"gdrive_url"`
	CreatedAt    time.Time `json:"created_at"`
	Text         string    `json:"-"`
}

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB opens (or creates) the database at dbPath
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		request_name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		filename TEXT NOT NULL,
		language TEXT,
		duration REAL,
		segment_count INTEGER,
		word_count INTEGER,
		local_path TEXT,
		gdrive_url TEXT,
		text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_request_name ON transcripts(request_name);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create table")
	}

	return &MetadataDB{db: db}, nil
}

// SaveTranscript saves transcript metadata and text to the database
func (mdb *MetadataDB) SaveTranscript(result *types.TranscriptionResult) error {
	query := `
	INSERT INTO transcripts (id, request_name, source_type, filename, language, duration,
		segment_count, word_count, local_path, gdrive_url, text, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := mdb.db.Exec(query, result.ID, result.RequestName, result.SourceType, result.Filename,
		result.Language, result.Duration, len(result.Segments), result.WordCount,
		result.LocalPath, result.GDriveURL, result.Text, result.ProcessedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "failed to save transcript metadata")
	}

	return nil
}

const selectColumns = `SELECT id, request_name, source_type, filename, language, duration,
	segment_count, word_count, local_path, gdrive_url, text, created_at FROM transcripts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec             Record
		language, local sql.NullString
		gdrive          sql.NullString
		duration        sql.NullFloat64
		segments, words sql.NullInt64
	)

	err := row.Scan(&rec.ID, &rec.RequestName, &rec.SourceType, &rec.Filename, &language,
		&duration, &segments, &words, &local, &gdrive, &rec.Text, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.Language = language.String
	rec.Duration = duration.Float64
	rec.SegmentCount = int(segments.Int64)
	rec.WordCount = int(words.Int64)
	rec.LocalPath = local.String
	rec.GDriveURL = gdrive.String
	return &rec, nil
}

// GetTranscript retrieves a transcript by id
func (mdb *MetadataDB) GetTranscript(id string) (*Record, error) {
	rec, err := scanRecord(mdb.db.QueryRow(selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transcript")
	}
	return rec, nil
}

// ListTranscripts returns the newest transcripts first
func (mdb *MetadataDB) ListTranscripts(limit int) ([]*Record, error) {
	rows, err := mdb.db.Query(selectColumns+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list transcripts")
	}
	defer rows.Close()

	transcripts := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan transcript")
		}
		transcripts = append(transcripts, rec)
	}

	return transcripts, rows.Err()
}

// DeleteOlderThan removes rows created before cutoff and returns the count
func (mdb *MetadataDB) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := mdb.db.Exec(`DELETE FROM transcripts WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete old transcripts")
	}
	return res.RowsAffected()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
