package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-videochunk/internal/align"
	"github.com/alnah/go-videochunk/internal/audio"
	"github.com/alnah/go-videochunk/internal/config"
	"github.com/alnah/go-videochunk/internal/ffmpeg"
	"github.com/alnah/go-videochunk/internal/logger"
	"github.com/alnah/go-videochunk/internal/propose"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Factories for domain objects
	FFmpegResolver  FFmpegResolver
	ConfigLoader    ConfigLoader
	LoggerFactory   LoggerFactory
	ProposerFactory ProposerFactory
	AlignerFactory  AlignerFactory
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigLoader loads the configuration. An empty path means the default
// location.
type ConfigLoader interface {
	Load(path string) (config.Config, error)
}

// LoggerFactory creates the structured logger for a log mode.
type LoggerFactory interface {
	NewLogger(mode string) (*logger.Logger, error)
}

// ProposerFactory creates boundary proposers.
type ProposerFactory interface {
	NewProposer(p propose.Provider, cfg config.ProposerConfig, apiKey string, log *logger.Logger) (propose.Proposer, error)
}

// AlignerParams carries what an aligner backend may need.
type AlignerParams struct {
	Config     config.AlignConfig
	FFmpegPath string
	APIKey     string
	Getenv     func(string) string
	Log        *logger.Logger
}

// AlignerFactory creates word aligners. The returned close function
// releases backend resources and is never nil on success.
type AlignerFactory interface {
	NewAligner(ctx context.Context, b align.Backend, p AlignerParams) (align.Aligner, func() error, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) {
		e.Now = fn
	}
}

// WithFFmpegResolver sets the FFmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) {
		e.FFmpegResolver = r
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithLoggerFactory sets the logger factory.
func WithLoggerFactory(f LoggerFactory) EnvOption {
	return func(e *Env) {
		e.LoggerFactory = f
	}
}

// WithProposerFactory sets the proposer factory.
func WithProposerFactory(f ProposerFactory) EnvOption {
	return func(e *Env) {
		e.ProposerFactory = f
	}
}

// WithAlignerFactory sets the aligner factory.
func WithAlignerFactory(f AlignerFactory) EnvOption {
	return func(e *Env) {
		e.AlignerFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		Getenv:          os.Getenv,
		Now:             time.Now,
		FFmpegResolver:  &defaultFFmpegResolver{w: os.Stderr},
		ConfigLoader:    &defaultConfigLoader{getenv: os.Getenv},
		LoggerFactory:   &defaultLoggerFactory{},
		ProposerFactory: &defaultProposerFactory{},
		AlignerFactory:  &defaultAlignerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
type defaultFFmpegResolver struct {
	w io.Writer
}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return ffmpeg.NewResolver().Resolve(ctx)
}

func (r defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	major, ok := ffmpeg.Version(ctx, ffmpeg.NewExecutor(), ffmpegPath)
	if ok && ffmpeg.Outdated(major) {
		_, _ = fmt.Fprintf(r.w, "Warning: ffmpeg %d is old; some codecs may be missing\n", major)
	}
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct {
	getenv func(string) string
}

func (l defaultConfigLoader) Load(path string) (config.Config, error) {
	return config.Load(path, l.getenv)
}

// defaultLoggerFactory implements LoggerFactory with zap.
type defaultLoggerFactory struct{}

func (defaultLoggerFactory) NewLogger(mode string) (*logger.Logger, error) {
	return logger.New(mode)
}

// defaultProposerFactory implements ProposerFactory over OpenAI-compatible
// chat APIs.
type defaultProposerFactory struct{}

func (defaultProposerFactory) NewProposer(p propose.Provider, cfg config.ProposerConfig, apiKey string, log *logger.Logger) (propose.Proposer, error) {
	client, err := propose.NewClient(p, apiKey)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = p.DefaultModel()
	}
	return propose.NewOpenAIProposer(client,
		propose.WithModel(model),
		propose.WithMaxRetries(cfg.MaxRetries),
		propose.WithRetryHook(retryHook(log, "proposer")),
	), nil
}

// defaultAlignerFactory implements AlignerFactory for every backend.
type defaultAlignerFactory struct{}

func (defaultAlignerFactory) NewAligner(ctx context.Context, b align.Backend, p AlignerParams) (align.Aligner, func() error, error) {
	noop := func() error { return nil }
	cfg := p.Config

	switch b {
	case align.BackendWhisperX:
		return align.NewWhisperXAligner(
			align.WithPython(cfg.Python),
			align.WithDevice(cfg.Device),
			align.WithWhisperModel(cfg.Model),
			align.WithWhisperXLanguage(cfg.Language),
		), noop, nil

	case align.BackendOpenAI:
		if p.APIKey == "" {
			return nil, nil, ErrAPIKeyMissing
		}
		return align.NewOpenAIAligner(openai.NewClient(p.APIKey), audio.NewExtractor(p.FFmpegPath),
			align.WithOpenAILanguage(cfg.Language),
			align.WithOpenAIModel(cfg.Model),
			align.WithOpenAIRetryHook(retryHook(p.Log, "aligner")),
		), noop, nil

	case align.BackendGCP:
		a, err := align.NewGCPAligner(ctx, audio.NewExtractor(p.FFmpegPath), align.ClientOptionsFromEnv(p.Getenv),
			align.WithGCPLanguage(cfg.Language),
			align.WithGCPModel(cfg.Model),
			align.WithGCPRetryHook(retryHook(p.Log, "aligner")),
		)
		if err != nil {
			return nil, nil, err
		}
		return a, a.Close, nil
	}
	return nil, nil, fmt.Errorf("%q: %w", b, align.ErrUnknownBackend)
}

// retryHook logs each retry of a remote call.
func retryHook(log *logger.Logger, component string) func(attempt int, err error, delay time.Duration) {
	if log == nil {
		log = logger.NewNop()
	}
	return func(attempt int, err error, delay time.Duration) {
		log.Warn("retrying", "component", component, "attempt", attempt, "delay", delay, "error", err)
	}
}

// Compile-time interface compliance checks.
var (
	_ FFmpegResolver  = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader    = (*defaultConfigLoader)(nil)
	_ LoggerFactory   = (*defaultLoggerFactory)(nil)
	_ ProposerFactory = (*defaultProposerFactory)(nil)
	_ AlignerFactory  = (*defaultAlignerFactory)(nil)
)
