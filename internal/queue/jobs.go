package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/groq-transcribe/internal/transcription"
	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

// Job represents a transcription job
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	Audio       transcription.Audio
	Status      string
	Error       error
	Result      *types.TranscriptionResult
	CreatedAt   time.Time

	ctx  context.Context
	done chan struct{}
	once sync.Once
}

// NewJob creates a new job with default values
func NewJob(requestName, sourceType string, audio transcription.Audio) *Job {
	return &Job{
		ID:          uuid.New().String(),
		RequestName: requestName,
		SourceType:  sourceType,
		Audio:       audio,
		Status:      types.StatusQueued,
		CreatedAt:   time.Now(),
		ctx:         context.Background(),
		done:        make(chan struct{}),
	}
}

// Done is closed once the job has a result or an error
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// finish records the outcome; only the first call has any effect
func (j *Job) finish(result *types.TranscriptionResult, err error) {
	j.once.Do(func() {
		j.Result = result
		j.Error = err
		if err != nil {
			j.Status = types.StatusFailed
		} else {
			j.Status = types.StatusCompleted
		}
		close(j.done)
	})
}
