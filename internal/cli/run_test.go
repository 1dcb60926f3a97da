package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-videochunk/internal/config"
	"github.com/alnah/go-videochunk/internal/logger"
	"github.com/alnah/go-videochunk/internal/pipeline"
	"github.com/alnah/go-videochunk/internal/propose"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// Notes:
// - The proposer is mocked; every other stage runs for real on the
//   four-topic fixture from helpers_test.go.
// - sample_2 lasts 10s so it fails the 30s test threshold.

func metadataTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "metadata")
	writeMetadata(t, filepath.Join(root, "travel", "sample_1.json"), 40)
	writeMetadata(t, filepath.Join(root, "travel", "sample_2.json"), 10)
	return root
}

// ---------------------------------------------------------------------------
// TestRunCmd
// ---------------------------------------------------------------------------

func TestRunCmd_ChunksAndRejects(t *testing.T) {
	t.Parallel()

	root := metadataTree(t)
	out := filepath.Join(t.TempDir(), "chunks")
	env, stdout, stderr, mocks := testEnv()

	if err := execute(t, RunCmd(env), root, out); err != nil {
		t.Fatalf("run error = %v", err)
	}

	rec := readRecord(t, filepath.Join(out, "travel", "sample_1.json"))
	if len(rec.Chunks) != 4 || rec.TopicCount != 4 {
		t.Errorf("record chunks = %d, topics = %d", len(rec.Chunks), rec.TopicCount)
	}
	if rec.Metrics != nil {
		t.Error("metrics set without --score")
	}
	if _, err := os.Stat(filepath.Join(out, "travel", "sample_2.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("rejected transcript has a record (stat err = %v)", err)
	}
	skipped, err := os.ReadFile(filepath.Join(out, "travel", pipeline.SkippedLogName))
	if err != nil || !strings.Contains(string(skipped), "sample_2.json") {
		t.Errorf("skipped.log = %q, %v", skipped, err)
	}

	if got := mocks.proposer.mockProposer.Calls(); got != 1 {
		t.Errorf("proposer calls = %d, want 1", got)
	}
	if mocks.proposer.lastProvider != propose.ProviderOpenAI || mocks.proposer.lastAPIKey != "test-openai-key" {
		t.Errorf("proposer built with %q / %q", mocks.proposer.lastProvider, mocks.proposer.lastAPIKey)
	}
	for _, want := range []string{"2 transcripts", "chunked:      1/2 (50.0%)", "rejected:     1/2 (50.0%)"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout.String())
		}
	}
	if !strings.Contains(stderr.String(), "Done in 00:00") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunCmd_ScoreAndRerun(t *testing.T) {
	t.Parallel()

	root := metadataTree(t)
	out := filepath.Join(t.TempDir(), "chunks")
	env, stdout, _, mocks := testEnv()

	if err := execute(t, RunCmd(env), root, out, "--score"); err != nil {
		t.Fatalf("run --score error = %v", err)
	}
	if rec := readRecord(t, filepath.Join(out, "travel", "sample_1.json")); rec.Metrics == nil {
		t.Error("metrics missing with --score")
	}

	// Second run keeps the existing record.
	if err := execute(t, RunCmd(env), root, out); err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if got := mocks.proposer.mockProposer.Calls(); got != 1 {
		t.Errorf("proposer calls after re-run = %d, want 1", got)
	}
	if !strings.Contains(stdout.String(), "existing:     1/2") {
		t.Errorf("stdout = %s", stdout.String())
	}

	if err := execute(t, RunCmd(env), root, out, "--force"); err != nil {
		t.Fatalf("forced run error = %v", err)
	}
	if got := mocks.proposer.mockProposer.Calls(); got != 2 {
		t.Errorf("proposer calls after --force = %d, want 2", got)
	}
}

func TestRunCmd_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	root := metadataTree(t)
	cfg := testConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "configured")
	env, _, _, mocks := testEnv(withTestConfig(cfg))

	err := execute(t, RunCmd(env), root, "--provider", "deepseek", "--model", "deepseek-reasoner", "--workers", "3")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if mocks.proposer.lastProvider != propose.ProviderDeepSeek || mocks.proposer.lastAPIKey != "test-deepseek-key" {
		t.Errorf("proposer built with %q / %q", mocks.proposer.lastProvider, mocks.proposer.lastAPIKey)
	}
	if mocks.proposer.lastConfig.Model != "deepseek-reasoner" {
		t.Errorf("model = %q", mocks.proposer.lastConfig.Model)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "travel", "sample_1.json")); err != nil {
		t.Errorf("record not written under configured output dir: %v", err)
	}
}

func TestRunCmd_ConfigFlagReachesLoader(t *testing.T) {
	t.Parallel()

	root := metadataTree(t)
	env, _, _, mocks := testEnv()

	if err := execute(t, RunCmd(env), root, t.TempDir(), "--config", "/etc/videochunk.yaml"); err != nil {
		t.Fatalf("run error = %v", err)
	}
	if got := mocks.configLoader.LastPath(); got != "/etc/videochunk.yaml" {
		t.Errorf("config path = %q", got)
	}
}

func TestRunCmd_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	tests := []struct {
		name    string
		args    func(root string) []string
		opts    []testEnvOption
		setup   func(m *testMocks)
		wantErr error
	}{
		{
			name:    "missing metadata root",
			args:    func(string) []string { return []string{"/nonexistent/metadata", "/tmp/out"} },
			wantErr: transcript.ErrInputMissing,
		},
		{
			name:    "no output directory",
			args:    func(root string) []string { return []string{root} },
			wantErr: config.ErrInvalid,
		},
		{
			name:    "unknown provider",
			args:    func(root string) []string { return []string{root, "/tmp/out", "--provider", "claude"} },
			wantErr: config.ErrInvalid,
		},
		{
			name:    "negative workers",
			args:    func(root string) []string { return []string{root, "/tmp/out", "--workers", "-2"} },
			wantErr: ErrInvalidFlag,
		},
		{
			name:    "openai key missing",
			args:    func(root string) []string { return []string{root, "/tmp/out"} },
			opts:    []testEnvOption{withTestGetenv(staticEnv(nil))},
			wantErr: ErrAPIKeyMissing,
		},
		{
			name: "deepseek key missing",
			args: func(root string) []string { return []string{root, "/tmp/out", "--provider", "deepseek"} },
			opts: []testEnvOption{withTestGetenv(staticEnv(map[string]string{EnvOpenAIAPIKey: "sk"}))},
			wantErr: ErrDeepSeekKeyMissing,
		},
		{
			name: "config load failure",
			args: func(root string) []string { return []string{root, "/tmp/out"} },
			setup: func(m *testMocks) {
				m.configLoader.LoadFunc = func(string) (config.Config, error) { return config.Config{}, boom }
			},
			wantErr: boom,
		},
		{
			name: "logger failure",
			args: func(root string) []string { return []string{root, "/tmp/out"} },
			setup: func(m *testMocks) {
				m.logger.NewLoggerFunc = func(string) (*logger.Logger, error) { return nil, boom }
			},
			wantErr: boom,
		},
		{
			name: "proposer factory failure",
			args: func(root string) []string { return []string{root, "/tmp/out"} },
			setup: func(m *testMocks) {
				m.proposer.NewProposerFunc = func(propose.Provider, config.ProposerConfig, string) (propose.Proposer, error) {
					return nil, propose.ErrEmptyAPIKey
				}
			},
			wantErr: propose.ErrEmptyAPIKey,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, _, _, mocks := testEnv(tt.opts...)
			if tt.setup != nil {
				tt.setup(mocks)
			}
			err := execute(t, RunCmd(env), tt.args(metadataTree(t))...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("run error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunCmd_Canceled(t *testing.T) {
	t.Parallel()

	root := metadataTree(t)
	env, _, _, _ := testEnv()
	cmd := RunCmd(env)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd.SetContext(ctx)

	err := runBatch(cmd, env, root, t.TempDir(), runOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("runBatch() error = %v, want context.Canceled", err)
	}
}

func TestRunCmd_RequiresArgs(t *testing.T) {
	t.Parallel()

	env, _, _, _ := testEnv()
	if err := execute(t, RunCmd(env)); err == nil {
		t.Error("run without args: expected error")
	}
}
