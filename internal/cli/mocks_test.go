package cli

import (
	"context"
	"sync"

	"github.com/alnah/go-videochunk/internal/align"
	"github.com/alnah/go-videochunk/internal/config"
	"github.com/alnah/go-videochunk/internal/logger"
	"github.com/alnah/go-videochunk/internal/propose"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc      func(ctx context.Context) (string, error)
	CheckVersionFunc func(ctx context.Context, ffmpegPath string)

	mu           sync.Mutex
	resolveCalls int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	if m.CheckVersionFunc != nil {
		m.CheckVersionFunc(ctx, ffmpegPath)
	}
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func(path string) (config.Config, error)

	mu        sync.Mutex
	loadCalls int
	lastPath  string
}

func (m *mockConfigLoader) Load(path string) (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.lastPath = path
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(path)
	}
	return testConfig(), nil
}

func (m *mockConfigLoader) LastPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPath
}

// ---------------------------------------------------------------------------
// Mock LoggerFactory
// ---------------------------------------------------------------------------

type mockLoggerFactory struct {
	NewLoggerFunc func(mode string) (*logger.Logger, error)

	mu       sync.Mutex
	lastMode string
}

func (m *mockLoggerFactory) NewLogger(mode string) (*logger.Logger, error) {
	m.mu.Lock()
	m.lastMode = mode
	m.mu.Unlock()

	if m.NewLoggerFunc != nil {
		return m.NewLoggerFunc(mode)
	}
	return logger.NewNop(), nil
}

// ---------------------------------------------------------------------------
// Mock ProposerFactory + Proposer
// ---------------------------------------------------------------------------

type mockProposer struct {
	ProposeFunc func(ctx context.Context, text string) (propose.Proposal, error)

	mu    sync.Mutex
	calls int
}

func (m *mockProposer) Propose(ctx context.Context, text string) (propose.Proposal, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ProposeFunc != nil {
		return m.ProposeFunc(ctx, text)
	}
	return fourTopics(), nil
}

func (m *mockProposer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockProposerFactory struct {
	NewProposerFunc func(p propose.Provider, cfg config.ProposerConfig, apiKey string) (propose.Proposer, error)
	mockProposer    *mockProposer

	mu           sync.Mutex
	lastProvider propose.Provider
	lastAPIKey   string
	lastConfig   config.ProposerConfig
}

func (m *mockProposerFactory) NewProposer(p propose.Provider, cfg config.ProposerConfig, apiKey string, _ *logger.Logger) (propose.Proposer, error) {
	m.mu.Lock()
	m.lastProvider = p
	m.lastAPIKey = apiKey
	m.lastConfig = cfg
	m.mu.Unlock()

	if m.NewProposerFunc != nil {
		return m.NewProposerFunc(p, cfg, apiKey)
	}
	if m.mockProposer == nil {
		m.mockProposer = &mockProposer{}
	}
	return m.mockProposer, nil
}

// ---------------------------------------------------------------------------
// Mock AlignerFactory + Aligner
// ---------------------------------------------------------------------------

type mockAligner struct {
	AlignFunc func(ctx context.Context, mediaPath, text string) (align.Alignment, error)

	mu       sync.Mutex
	lastText string
}

func (m *mockAligner) Align(ctx context.Context, mediaPath, text string) (align.Alignment, error) {
	m.mu.Lock()
	m.lastText = text
	m.mu.Unlock()

	if m.AlignFunc != nil {
		return m.AlignFunc(ctx, mediaPath, text)
	}
	return align.Alignment{Words: wordsOf(fixtureText()), Duration: 45}, nil
}

func (m *mockAligner) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastText
}

type mockAlignerFactory struct {
	NewAlignerFunc func(ctx context.Context, b align.Backend, p AlignerParams) (align.Aligner, func() error, error)
	mockAligner    *mockAligner

	mu          sync.Mutex
	lastBackend align.Backend
	lastParams  AlignerParams
	closeCalls  int
}

func (m *mockAlignerFactory) NewAligner(ctx context.Context, b align.Backend, p AlignerParams) (align.Aligner, func() error, error) {
	m.mu.Lock()
	m.lastBackend = b
	m.lastParams = p
	m.mu.Unlock()

	if m.NewAlignerFunc != nil {
		return m.NewAlignerFunc(ctx, b, p)
	}
	if m.mockAligner == nil {
		m.mockAligner = &mockAligner{}
	}
	return m.mockAligner, func() error {
		m.mu.Lock()
		m.closeCalls++
		m.mu.Unlock()
		return nil
	}, nil
}

func (m *mockAlignerFactory) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}
