// Package propose asks a chat completion model where a transcript's topics
// change. It runs two stages: the model first estimates the number of chunks
// and titles them, then names the boundaries between consecutive chunks as
// "prefix[BORDER]suffix" lines.
package propose

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-videochunk/internal/apierr"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// Proposal is the model's view of a transcript's topical structure.
type Proposal struct {
	TopicCount int
	Titles     []string
	RawBorders []transcript.RawBorder
	// RawOutput is the unparsed stage-two answer, empty when TopicCount is 1.
	RawOutput string
}

// Expected returns the number of borders the model was asked for.
func (p Proposal) Expected() int {
	return p.TopicCount - 1
}

// Proposer proposes topic boundaries for a transcript.
type Proposer interface {
	Propose(ctx context.Context, text string) (Proposal, error)
}

// chatCompleter is the part of *openai.Client the proposer needs.
// Tests inject a scripted implementation.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Proposer      = (*OpenAIProposer)(nil)
	_ chatCompleter = (*openai.Client)(nil)
)

// Provider names an OpenAI-compatible chat completion service.
type Provider string

// Supported providers.
const (
	ProviderOpenAI   Provider = "openai"
	ProviderDeepSeek Provider = "deepseek"
)

// Default configuration values.
const (
	defaultOpenAIModel   = openai.GPT4o
	defaultDeepSeekModel = "deepseek-chat"
	deepSeekBaseURL      = "https://api.deepseek.com"

	defaultMaxInputTokens = 100000
	charsPerToken         = 3

	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
	retryJitter       = 0.2
)

// ParseProvider validates a provider name. Empty means OpenAI.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProviderOpenAI, nil
	case ProviderOpenAI, ProviderDeepSeek:
		return p, nil
	}
	return "", fmt.Errorf("%q (use 'openai' or 'deepseek'): %w", s, ErrUnknownProvider)
}

// DefaultModel returns the model used when none is configured.
func (p Provider) DefaultModel() string {
	if p == ProviderDeepSeek {
		return defaultDeepSeekModel
	}
	return defaultOpenAIModel
}

// NewClient builds a go-openai client for the provider.
func NewClient(p Provider, apiKey string) (*openai.Client, error) {
	if apiKey == "" {
		return nil, ErrEmptyAPIKey
	}
	switch p {
	case ProviderOpenAI:
		return openai.NewClient(apiKey), nil
	case ProviderDeepSeek:
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = deepSeekBaseURL
		return openai.NewClientWithConfig(cfg), nil
	}
	return nil, fmt.Errorf("%q: %w", p, ErrUnknownProvider)
}

// OpenAIProposer proposes boundaries through a chat completion API.
// Transient failures are retried with exponential backoff.
type OpenAIProposer struct {
	client         chatCompleter
	model          string
	maxInputTokens int
	maxRetries     int
	baseDelay      time.Duration
	maxDelay       time.Duration
	onRetry        func(attempt int, err error, delay time.Duration)
}

// Option configures an OpenAIProposer.
type Option func(*OpenAIProposer)

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(p *OpenAIProposer) {
		if model != "" {
			p.model = model
		}
	}
}

// WithMaxInputTokens sets the estimated input token limit.
func WithMaxInputTokens(n int) Option {
	return func(p *OpenAIProposer) {
		if n > 0 {
			p.maxInputTokens = n
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) Option {
	return func(p *OpenAIProposer) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) Option {
	return func(p *OpenAIProposer) {
		if base > 0 {
			p.baseDelay = base
		}
		if max > 0 {
			p.maxDelay = max
		}
	}
}

// WithRetryHook registers a callback invoked before each retry.
func WithRetryHook(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(p *OpenAIProposer) {
		p.onRetry = fn
	}
}

// withChatCompleter replaces the client (for testing).
func withChatCompleter(cc chatCompleter) Option {
	return func(p *OpenAIProposer) {
		p.client = cc
	}
}

// NewOpenAIProposer creates a proposer on top of client.
func NewOpenAIProposer(client *openai.Client, opts ...Option) *OpenAIProposer {
	p := &OpenAIProposer{
		model:          defaultOpenAIModel,
		maxInputTokens: defaultMaxInputTokens,
		maxRetries:     defaultMaxRetries,
		baseDelay:      defaultBaseDelay,
		maxDelay:       defaultMaxDelay,
	}
	// A nil *openai.Client must not become a non-nil interface.
	if client != nil {
		p.client = client
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Propose runs both stages. A single-topic answer skips stage two and
// returns no borders. A stage-two answer without any [BORDER] line is
// ErrMalformedResponse; a wrong number of lines is returned as is and left
// to the caller to report.
func (p *OpenAIProposer) Propose(ctx context.Context, text string) (Proposal, error) {
	if strings.TrimSpace(text) == "" {
		return Proposal{}, ErrEmptyText
	}
	if est := len(text) / charsPerToken; est > p.maxInputTokens {
		return Proposal{}, fmt.Errorf("transcript too long (%dK tokens estimated, max %dK): %w",
			est/1000, p.maxInputTokens/1000, ErrTranscriptTooLong)
	}

	countOut, err := p.complete(ctx, buildCountPrompt(text))
	if err != nil {
		return Proposal{}, fmt.Errorf("estimate chunk count: %w", err)
	}
	count, titles := parseCount(countOut)

	prop := Proposal{TopicCount: count, Titles: titles, RawBorders: []transcript.RawBorder{}}
	if count == 1 {
		return prop, nil
	}

	borderOut, err := p.complete(ctx, buildBorderPrompt(text, count, titles))
	if err != nil {
		return Proposal{}, fmt.Errorf("detect borders: %w", err)
	}
	prop.RawOutput = borderOut
	prop.RawBorders = parseBorders(borderOut)
	if len(prop.RawBorders) == 0 {
		return prop, fmt.Errorf("no [BORDER] line in answer for %d topics: %w",
			count, apierr.ErrMalformedResponse)
	}
	return prop, nil
}

// complete sends prompt as the system message and returns the trimmed answer.
func (p *OpenAIProposer) complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		Temperature: 0,
	}
	cfg := apierr.RetryConfig{
		Op:         "chat completion",
		MaxRetries: p.maxRetries,
		BaseDelay:  p.baseDelay,
		MaxDelay:   p.maxDelay,
		Jitter:     retryJitter,
		OnRetry:    p.onRetry,
	}

	return apierr.RetryWithBackoff(ctx, cfg, func() (string, error) {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", classifyError(err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices: %w", apierr.ErrMalformedResponse)
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}, apierr.IsRetryable)
}

// classifyError adds the context-length case on top of the shared
// OpenAI classification.
func classifyError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "context_length_exceeded") ||
		strings.Contains(msg, "maximum context length") {
		return fmt.Errorf("API rejected: %w", ErrTranscriptTooLong)
	}
	return apierr.ClassifyOpenAI(err)
}
