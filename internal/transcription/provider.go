package transcription

//go:generate mockgen -destination=mocks/mock_provider.go -package=mocks . Provider

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

// ErrEmptyAudio is returned when an upload carries no bytes
var ErrEmptyAudio = errors.New("audio payload is empty")

// Audio is a single audio file handed to a provider
type Audio struct {
	Filename string
	Data     []byte
}

// Options biases recognition. Empty fields are left out of the provider
// call so the provider detects the language itself.
type Options struct {
	LanguageHint string
	PriorPrompt  string
}

// Provider is an external speech-to-text service returning segmented output
type Provider interface {
	Transcribe(ctx context.Context, audio Audio, opts Options) (*types.TranscriptionResult, error)
}

// Transcriber forwards audio to a provider and formats its segments.
// It holds no per-request state and is safe for concurrent use.
type Transcriber struct {
	provider Provider
	opts     Options
}

// NewTranscriber creates a transcriber bound to one provider and option set
func NewTranscriber(provider Provider, opts Options) *Transcriber {
	return &Transcriber{
		provider: provider,
		opts:     opts,
	}
}

// Options returns the options sent with every provider call
func (t *Transcriber) Options() Options {
	return t.opts
}

// Transcribe sends the audio to the provider and builds the timestamped text
func (t *Transcriber) Transcribe(ctx context.Context, audio Audio) (*types.TranscriptionResult, error) {
	if len(audio.Data) == 0 {
		return nil, ErrEmptyAudio
	}
	audio.Filename = AudioFilename(audio.Filename)

	result, err := t.provider.Transcribe(ctx, audio, t.opts)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("provider returned no result")
	}

	result.Filename = audio.Filename
	result.Text = FormatTranscript(result.Segments)
	result.WordCount = len(strings.Fields(result.RawText))
	if result.Duration == 0 && len(result.Segments) > 0 {
		result.Duration = result.Segments[len(result.Segments)-1].End
	}

	return result, nil
}
