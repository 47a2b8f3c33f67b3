package transcription

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

const (
	// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	// DefaultGroqModel is Groq's hosted Whisper Large V3
	DefaultGroqModel = "whisper-large-v3"
)

// GroqConfig configures the Groq provider
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GroqProvider calls Groq's Whisper through the OpenAI audio API
type GroqProvider struct {
	client *openai.Client
	model  string
}

// NewGroqProvider builds the provider once at startup. A missing API key is
// not checked here; the provider rejects the call with an auth error.
func NewGroqProvider(cfg GroqConfig) *GroqProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = DefaultGroqBaseURL
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	model := cfg.Model
	if model == "" {
		model = DefaultGroqModel
	}

	return &GroqProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

// Model returns the model identifier sent with each request
func (g *GroqProvider) Model() string {
	return g.model
}

// Transcribe requests verbose JSON so the response carries segment timings
func (g *GroqProvider) Transcribe(ctx context.Context, audio Audio, opts Options) (*types.TranscriptionResult, error) {
	resp, err := g.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    g.model,
		FilePath: audio.Filename,
		Reader:   bytes.NewReader(audio.Data),
		Prompt:   opts.PriorPrompt,
		Language: opts.LanguageHint,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, errors.Wrap(err, "groq transcription failed")
	}

	segments := make([]types.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = types.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}

	return &types.TranscriptionResult{
		RawText:  resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: segments,
	}, nil
}
