package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-videochunk/internal/config"
)

// Notes:
// - config path and init resolve the default location through the injected
//   getenv, so XDG_CONFIG_HOME points at a temp dir and no test touches $HOME.

func xdgEnv(dir string) testEnvOption {
	return withTestGetenv(staticEnv(map[string]string{"XDG_CONFIG_HOME": dir}))
}

// ---------------------------------------------------------------------------
// TestConfigShow
// ---------------------------------------------------------------------------

func TestConfigShow(t *testing.T) {
	t.Parallel()

	env, stdout, _, _ := testEnv()
	if err := execute(t, ConfigCmd(env), "show"); err != nil {
		t.Fatalf("config show error = %v", err)
	}
	for _, want := range []string{"workers: 1", "min_duration_seconds: 30", "backend: whisperx"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestConfigShow_LoadError(t *testing.T) {
	t.Parallel()

	env, _, _, mocks := testEnv()
	mocks.configLoader.LoadFunc = func(string) (config.Config, error) { return config.Config{}, config.ErrInvalid }
	if err := execute(t, ConfigCmd(env), "show"); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("config show error = %v, want ErrInvalid", err)
	}
}

// ---------------------------------------------------------------------------
// TestConfigPath
// ---------------------------------------------------------------------------

func TestConfigPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	env, stdout, _, _ := testEnv(xdgEnv(dir))
	if err := execute(t, ConfigCmd(env), "path"); err != nil {
		t.Fatalf("config path error = %v", err)
	}
	want := filepath.Join(dir, "videochunk", "config.yaml")
	if got := strings.TrimSpace(stdout.String()); got != want {
		t.Errorf("config path = %q, want %q", got, want)
	}
}

func TestConfigPath_FlagWins(t *testing.T) {
	t.Parallel()

	env, stdout, _, _ := testEnv(xdgEnv(t.TempDir()))
	if err := execute(t, ConfigCmd(env), "path", "--config", "/etc/videochunk.yaml"); err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "/etc/videochunk.yaml" {
		t.Errorf("config path = %q", got)
	}
}

// ---------------------------------------------------------------------------
// TestConfigInit
// ---------------------------------------------------------------------------

func TestConfigInit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	env, _, stderr, _ := testEnv(xdgEnv(dir))
	path := filepath.Join(dir, "videochunk", "config.yaml")

	if err := execute(t, ConfigCmd(env), "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(stderr.String(), "Wrote "+path) {
		t.Errorf("stderr = %q", stderr.String())
	}

	// The written file must load back to the defaults.
	cfg, err := config.Load(path, staticEnv(nil))
	if err != nil {
		t.Fatalf("Load(written) error = %v", err)
	}
	if cfg.Workers != config.Default().Workers || cfg.Align.Backend != config.Default().Align.Backend {
		t.Errorf("written config = %+v", cfg)
	}

	if err := execute(t, ConfigCmd(env), "init"); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second init error = %v, want ErrConfigExists", err)
	}
	if err := os.WriteFile(path, []byte("workers: 9\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, ConfigCmd(env), "init", "--force"); err != nil {
		t.Fatalf("init --force error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "workers: 9") {
		t.Error("init --force did not overwrite the file")
	}
}

func TestConfigCmd_RejectsArgs(t *testing.T) {
	t.Parallel()

	env, _, _, _ := testEnv()
	if err := execute(t, ConfigCmd(env), "show", "extra"); err == nil {
		t.Error("config show with an argument: expected error")
	}
}
