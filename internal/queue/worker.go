package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/groq-transcribe/internal/transcription"
	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

// ErrPoolStopped is returned by Submit after Stop
var ErrPoolStopped = errors.New("worker pool is stopped")

const (
	driveAttempts  = 3
	archiveTimeout = 2 * time.Minute
)

// Transcriber turns audio into a formatted transcript
type Transcriber interface {
	Transcribe(ctx context.Context, audio transcription.Audio) (*types.TranscriptionResult, error)
}

// TranscriptSaver writes a transcript to local disk and returns its path
type TranscriptSaver interface {
	SaveTranscript(result *types.TranscriptionResult) (string, error)
}

// DriveUploader copies a transcript to Google Drive and returns its link
type DriveUploader interface {
	Upload(ctx context.Context, result *types.TranscriptionResult) (string, error)
}

// RecordStore persists transcript metadata
type RecordStore interface {
	SaveTranscript(result *types.TranscriptionResult) error
}

// Archive groups the optional sinks a finished transcript is written to.
// Nil fields are skipped.
type Archive struct {
	Local TranscriptSaver
	Drive DriveUploader
	DB    RecordStore
}

// WorkerPool bounds how many transcriptions run at once
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	transcriber Transcriber
	archive     Archive
	logger      *zap.SugaredLogger
	retryDelay  func(attempt int) time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount int, transcriber Transcriber, archive Archive, logger *zap.SugaredLogger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, 100),
		workerCount: workerCount,
		transcriber: transcriber,
		archive:     archive,
		logger:      logger,
		retryDelay: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	wp.logger.Infof("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue and waits for in-flight jobs and archiving
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.logger.Info("Worker pool stopped")
}

// Submit enqueues the job and waits for its result. The context bounds both
// the wait and the provider call.
func (wp *WorkerPool) Submit(ctx context.Context, job *Job) (*types.TranscriptionResult, error) {
	job.ctx = ctx

	if err := wp.enqueue(ctx, job); err != nil {
		return nil, err
	}

	select {
	case <-job.Done():
		return job.Result, job.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (wp *WorkerPool) enqueue(ctx context.Context, job *Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	job.Status = types.StatusQueued
	select {
	case wp.jobQueue <- job:
		wp.logger.Debugf("Job %s enqueued (source: %s, name: %s)", job.ID, job.SourceType, job.RequestName)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	wp.logger.Debugf("Worker %d started", id)

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.logger.Errorf("Worker %d: PANIC processing job %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					job.finish(nil, fmt.Errorf("worker panic: %v", r))
				}
			}()

			wp.processJob(id, job)
		}()
	}
}

// processJob transcribes, hands the result back, then archives a copy
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	if err := job.ctx.Err(); err != nil {
		job.finish(nil, err)
		return
	}

	wp.logger.Infof("Worker %d: Processing job %s (%s, %d bytes)",
		workerID, job.ID, job.Audio.Filename, len(job.Audio.Data))
	job.Status = types.StatusProcessing

	result, err := wp.transcriber.Transcribe(job.ctx, job.Audio)
	if err != nil {
		wp.logger.Errorf("Worker %d: Transcription failed for job %s: %v", workerID, job.ID, err)
		job.finish(nil, err)
		return
	}

	result.ID = job.ID
	result.RequestName = job.RequestName
	result.SourceType = job.SourceType
	result.ProcessedAt = time.Now()

	archived := *result
	job.finish(result, nil)

	wp.logger.Infof("Worker %d: Job %s transcribed (%d segments, %.2fs)",
		workerID, job.ID, len(result.Segments), result.Duration)

	wp.archiveResult(workerID, &archived)
}

// archiveResult writes the transcript to every configured sink. Failures are
// logged only.
func (wp *WorkerPool) archiveResult(workerID int, result *types.TranscriptionResult) {
	if wp.archive.Local == nil && wp.archive.Drive == nil && wp.archive.DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if wp.archive.Local != nil {
		localPath, err := wp.archive.Local.SaveTranscript(result)
		if err != nil {
			wp.logger.Errorf("Worker %d: Local save failed for job %s: %v", workerID, result.ID, err)
		} else {
			result.LocalPath = localPath
		}
	}

	if wp.archive.Drive != nil {
		result.GDriveURL = wp.uploadWithRetry(ctx, workerID, result)
	}

	if wp.archive.DB != nil {
		if err := wp.archive.DB.SaveTranscript(result); err != nil {
			wp.logger.Errorf("Worker %d: Database save failed for job %s: %v", workerID, result.ID, err)
		}
	}

	wp.logger.Infof("Worker %d: Job %s archived (local: %s, gdrive: %s)",
		workerID, result.ID, result.LocalPath, result.GDriveURL)
}

func (wp *WorkerPool) uploadWithRetry(ctx context.Context, workerID int, result *types.TranscriptionResult) string {
	for attempt := 1; attempt <= driveAttempts; attempt++ {
		url, err := wp.archive.Drive.Upload(ctx, result)
		if err == nil {
			return url
		}
		wp.logger.Warnf("Worker %d: Google Drive upload attempt %d/%d failed: %v",
			workerID, attempt, driveAttempts, err)

		if attempt < driveAttempts {
			select {
			case <-time.After(wp.retryDelay(attempt)):
			case <-ctx.Done():
				return ""
			}
		}
	}

	wp.logger.Warnf("Worker %d: Google Drive upload failed after %d attempts, keeping local copy only",
		workerID, driveAttempts)
	return ""
}
