package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/config"
	"github.com/alnah/go-videochunk/internal/propose"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	ffmpegResolver *mockFFmpegResolver
	configLoader   *mockConfigLoader
	logger         *mockLoggerFactory
	proposer       *mockProposerFactory
	aligner        *mockAlignerFactory
}

func newTestMocks() *testMocks {
	return &testMocks{
		ffmpegResolver: &mockFFmpegResolver{},
		configLoader:   &mockConfigLoader{},
		logger:         &mockLoggerFactory{},
		proposer:       &mockProposerFactory{},
		aligner:        &mockAlignerFactory{},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

// testEnvOptions configures a test environment.
type testEnvOptions struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	now    func() time.Time
	mocks  *testMocks
}

// testEnvOption configures testEnv.
type testEnvOption func(*testEnvOptions)

func withTestGetenv(fn func(string) string) testEnvOption {
	return func(o *testEnvOptions) { o.getenv = fn }
}

func withTestConfig(cfg config.Config) testEnvOption {
	return func(o *testEnvOptions) {
		o.mocks.configLoader.LoadFunc = func(string) (config.Config, error) { return cfg, nil }
	}
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env, stdout and stderr buffers, and the mocks for assertions.
func testEnv(opts ...testEnvOption) (*Env, *syncBuffer, *syncBuffer, *testMocks) {
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	options := &testEnvOptions{
		stdout: stdout,
		stderr: stderr,
		getenv: defaultTestEnv,
		now: func() time.Time {
			return time.Date(2026, 1, 26, 14, 30, 52, 0, time.UTC)
		},
		mocks: newTestMocks(),
	}

	for _, opt := range opts {
		opt(options)
	}

	env := &Env{
		Stdout:          options.stdout,
		Stderr:          options.stderr,
		Getenv:          options.getenv,
		Now:             options.now,
		FFmpegResolver:  options.mocks.ffmpegResolver,
		ConfigLoader:    options.mocks.configLoader,
		LoggerFactory:   options.mocks.logger,
		ProposerFactory: options.mocks.proposer,
		AlignerFactory:  options.mocks.aligner,
	}

	return env, stdout, stderr, options.mocks
}

// execute runs cmd with args under a root carrying the --config flag.
func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	root := &cobra.Command{Use: "videochunk", SilenceErrors: true, SilenceUsage: true}
	root.PersistentFlags().String(ConfigFlag, "", "config file")
	root.AddCommand(cmd)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{cmd.Name()}, args...))
	return root.ExecuteContext(context.Background())
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// defaultTestEnv returns API keys for both OpenAI and DeepSeek.
func defaultTestEnv(key string) string {
	switch key {
	case EnvOpenAIAPIKey:
		return "test-openai-key"
	case EnvDeepSeekAPIKey:
		return "test-deepseek-key"
	default:
		return ""
	}
}

// testConfig is the default configuration with thresholds the short
// fixture passes.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Quality.MinDurationSeconds = 30
	cfg.Quality.MinScenes = 1
	cfg.Quality.MinWords = 10
	return cfg
}

// ---------------------------------------------------------------------------
// Transcript fixtures
// ---------------------------------------------------------------------------

var fixtureSegments = []map[string]any{
	{"text": "The river is calm today. We walk along the bank. ", "start": 0, "end": 10},
	{"text": "Next we visit the old mill. It grinds flour every day. ", "start": 10, "end": 20},
	{"text": "Then the market opens at noon. Traders sell fresh bread. ", "start": 20, "end": 30},
	{"text": "Finally we rest by the fire. Goodnight everyone.", "start": 30, "end": 40},
}

func fixtureText() string {
	var b strings.Builder
	for _, s := range fixtureSegments {
		b.WriteString(s["text"].(string))
	}
	return b.String()
}

var fixtureBorders = []transcript.RawBorder{
	{Prefix: "along the bank.", Suffix: "Next we visit"},
	{Prefix: "flour every day.", Suffix: "Then the market"},
	{Prefix: "sell fresh bread.", Suffix: "Finally we rest"},
}

func fourTopics() propose.Proposal {
	return propose.Proposal{
		TopicCount: 4,
		Titles:     []string{"River", "Mill", "Market", "Evening"},
		RawBorders: fixtureBorders,
		RawOutput:  "along the bank.[BORDER]Next we visit",
	}
}

func wordsOf(text string) []transcript.WordTiming {
	var out []transcript.WordTiming
	for i, w := range strings.Fields(text) {
		out = append(out, transcript.WordTiming{Word: w, Start: float64(i), End: float64(i) + 0.8})
	}
	return out
}

// writeMetadata writes a four-topic metadata file lasting duration seconds.
func writeMetadata(t *testing.T, path string, duration float64) string {
	t.Helper()
	doc := map[string]any{
		"duration_seconds":         duration,
		"content_metadata":         map[string]any{"scenes": []map[string]any{{"id": 0}, {"id": 1}}},
		"timecoded_text_to_speech": fixtureSegments,
	}
	writeJSON(t, path, doc)
	return path
}

// writeRecord writes a proposed but unrefined record for metaPath.
func writeRecord(t *testing.T, path, metaPath string) string {
	t.Helper()
	writeJSON(t, path, transcript.Record{
		MetadataFile: metaPath,
		TopicCount:   4,
		Titles:       []string{"River", "Mill", "Market", "Evening"},
		Borders:      fixtureBorders,
		NewBorders:   []*string{},
	})
	return path
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func readRecord(t *testing.T, path string) transcript.Record {
	t.Helper()
	rec, err := transcript.LoadRecord(path)
	if err != nil {
		t.Fatalf("LoadRecord(%s) error = %v", path, err)
	}
	return rec
}
