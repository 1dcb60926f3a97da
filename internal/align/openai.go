package align

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-videochunk/internal/apierr"
	"github.com/alnah/go-videochunk/internal/audio"
	"github.com/alnah/go-videochunk/internal/lang"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// Default configuration values.
const (
	defaultOpenAIMaxRetries = 5
	defaultOpenAIBaseDelay  = 1 * time.Second
	defaultOpenAIMaxDelay   = 30 * time.Second

	// Shared by every backend that retries.
	retryJitter = 0.2

	// The transcription prompt is limited to 224 tokens.
	promptWords = 150
)

// audioTranscriber is the part of *openai.Client the aligner needs.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

var _ audioTranscriber = (*openai.Client)(nil)

// OpenAIAligner gets word timestamps from OpenAI's transcription endpoint.
// Only whisper-1 returns word-level granularity.
type OpenAIAligner struct {
	client     audioTranscriber
	src        audioSource
	model      string
	language   string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	onRetry    func(attempt int, err error, delay time.Duration)
}

// OpenAIOption configures an OpenAIAligner.
type OpenAIOption func(*OpenAIAligner)

// WithOpenAILanguage sets the spoken language; any locale is reduced to its
// ISO 639-1 base code.
func WithOpenAILanguage(code string) OpenAIOption {
	return func(a *OpenAIAligner) { a.language = lang.BaseCode(code) }
}

// WithOpenAIModel overrides the transcription model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(a *OpenAIAligner) {
		if model != "" {
			a.model = model
		}
	}
}

// WithOpenAIRetry sets the retry budget and delays.
func WithOpenAIRetry(maxRetries int, base, max time.Duration) OpenAIOption {
	return func(a *OpenAIAligner) {
		if maxRetries >= 0 {
			a.maxRetries = maxRetries
		}
		if base > 0 {
			a.baseDelay = base
		}
		if max > 0 {
			a.maxDelay = max
		}
	}
}

// WithOpenAIRetryHook registers a callback invoked before each retry.
func WithOpenAIRetryHook(fn func(attempt int, err error, delay time.Duration)) OpenAIOption {
	return func(a *OpenAIAligner) { a.onRetry = fn }
}

// withAudioTranscriber replaces the client (for testing).
func withAudioTranscriber(t audioTranscriber) OpenAIOption {
	return func(a *OpenAIAligner) { a.client = t }
}

// NewOpenAIAligner creates an aligner. src extracts the upload audio.
func NewOpenAIAligner(client *openai.Client, src audioSource, opts ...OpenAIOption) *OpenAIAligner {
	a := &OpenAIAligner{
		src:        src,
		model:      openai.Whisper1,
		maxRetries: defaultOpenAIMaxRetries,
		baseDelay:  defaultOpenAIBaseDelay,
		maxDelay:   defaultOpenAIMaxDelay,
	}
	if client != nil {
		a.client = client
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Align uploads the audio track as 16 kHz OGG and reads word timestamps from
// the verbose JSON response. The transcript's opening words go in as the
// prompt to steer spelling.
func (a *OpenAIAligner) Align(ctx context.Context, mediaPath, text string) (Alignment, error) {
	audioPath, cleanup, err := a.src.Extract(ctx, mediaPath, audio.OGG)
	if err != nil {
		return Alignment{}, fmt.Errorf("extract audio: %w", err)
	}
	defer cleanup()

	req := openai.AudioRequest{
		Model:                  a.model,
		FilePath:               audioPath,
		Prompt:                 promptHint(text, promptWords),
		Language:               a.language,
		Format:                 openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{openai.TranscriptionTimestampGranularityWord},
	}
	cfg := apierr.RetryConfig{
		Op:         "audio transcription",
		MaxRetries: a.maxRetries,
		BaseDelay:  a.baseDelay,
		MaxDelay:   a.maxDelay,
		Jitter:     retryJitter,
		OnRetry:    a.onRetry,
	}

	resp, err := apierr.RetryWithBackoff(ctx, cfg, func() (openai.AudioResponse, error) {
		resp, err := a.client.CreateTranscription(ctx, req)
		if err != nil {
			return openai.AudioResponse{}, apierr.ClassifyOpenAI(err)
		}
		return resp, nil
	}, apierr.IsRetryable)
	if err != nil {
		return Alignment{}, fmt.Errorf("transcribe %s: %w", mediaPath, err)
	}

	words := make([]transcript.WordTiming, 0, len(resp.Words))
	for _, w := range resp.Words {
		words = append(words, transcript.WordTiming{Word: w.Word, Start: w.Start, End: w.End})
	}
	return finish(ctx, a.src, mediaPath, words, resp.Duration)
}
