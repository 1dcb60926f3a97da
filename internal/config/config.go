// Package config loads the YAML configuration that holds every pipeline
// threshold and backend setting.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alnah/go-videochunk/internal/align"
	"github.com/alnah/go-videochunk/internal/border"
	"github.com/alnah/go-videochunk/internal/cohesion"
	"github.com/alnah/go-videochunk/internal/lang"
	"github.com/alnah/go-videochunk/internal/propose"
	"github.com/alnah/go-videochunk/internal/quality"
	"github.com/alnah/go-videochunk/internal/split"
	"github.com/alnah/go-videochunk/internal/timestamp"
)

// ErrInvalid indicates a configuration value out of range.
var ErrInvalid = errors.New("invalid configuration")

// Environment variable fallbacks.
const (
	EnvOutputDir = "VIDEOCHUNK_OUTPUT_DIR"
	EnvLogMode   = "VIDEOCHUNK_LOG_MODE"
)

const (
	appDir   = "videochunk"
	fileName = "config.yaml"
)

// Config is the full configuration.
type Config struct {
	OutputDir string          `yaml:"output_dir"`
	Workers   int             `yaml:"workers"`
	LogMode   string          `yaml:"log_mode"`
	Quality   QualityConfig   `yaml:"quality"`
	Refine    RefineConfig    `yaml:"refine"`
	Split     SplitConfig     `yaml:"split"`
	Timestamp TimestampConfig `yaml:"timestamp"`
	Cohesion  CohesionConfig  `yaml:"cohesion"`
	Proposer  ProposerConfig  `yaml:"proposer"`
	Align     AlignConfig     `yaml:"align"`
}

// QualityConfig holds the admission thresholds.
type QualityConfig struct {
	MinDurationSeconds float64 `yaml:"min_duration_seconds"`
	MinScenes          int     `yaml:"min_scenes"`
	MinWords           int     `yaml:"min_words"`
}

// Thresholds converts to the filter's type.
func (q QualityConfig) Thresholds() quality.Thresholds {
	return quality.Thresholds{
		MinDurationSeconds: q.MinDurationSeconds,
		MinScenes:          q.MinScenes,
		MinWords:           q.MinWords,
	}
}

// RefineConfig holds border refinement settings.
type RefineConfig struct {
	MinBorders int `yaml:"min_borders"`
}

// SplitConfig holds border location settings.
type SplitConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	OpeningWords   int     `yaml:"opening_words"`
}

// TimestampConfig holds timestamp-mapper settings.
type TimestampConfig struct {
	PrefixWords int `yaml:"prefix_words"`

	// SkipSpace maps chunks from their first non-space character.
	SkipSpace bool `yaml:"skip_space"`
}

// CohesionConfig holds scoring settings.
type CohesionConfig struct {
	Mode        string  `yaml:"mode"`
	K           float64 `yaml:"k"`
	CacheWeight float64 `yaml:"cache_weight"`
}

// ProposerConfig selects the chat model used for boundary proposals.
type ProposerConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	MaxRetries int    `yaml:"max_retries"`
}

// AlignConfig selects the word alignment backend.
type AlignConfig struct {
	Backend  string `yaml:"backend"`
	Language string `yaml:"language"`
	Model    string `yaml:"model"`
	Device   string `yaml:"device"`
	Python   string `yaml:"python"`
}

// Default returns the built-in configuration.
func Default() Config {
	q := quality.DefaultThresholds()
	return Config{
		Workers: 1,
		LogMode: "dev",
		Quality: QualityConfig{
			MinDurationSeconds: q.MinDurationSeconds,
			MinScenes:          q.MinScenes,
			MinWords:           q.MinWords,
		},
		Refine:    RefineConfig{MinBorders: border.DefaultMinBorders},
		Split:     SplitConfig{FuzzyThreshold: split.DefaultFuzzyThreshold, OpeningWords: split.DefaultOpeningWords},
		Timestamp: TimestampConfig{PrefixWords: timestamp.DefaultPrefixWords},
		Cohesion: CohesionConfig{
			Mode:        string(cohesion.ModeSequential),
			K:           cohesion.DefaultK,
			CacheWeight: cohesion.DefaultCacheWeight,
		},
		Proposer: ProposerConfig{Provider: string(propose.ProviderOpenAI), MaxRetries: 3},
		Align: AlignConfig{
			Backend:  string(align.BackendWhisperX),
			Language: "en",
			Device:   "cuda",
			Python:   "python3",
		},
	}
}

// Dir returns the configuration directory: $XDG_CONFIG_HOME/videochunk,
// or ~/.config/videochunk.
func Dir(getenv func(string) string) (string, error) {
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDir), nil
}

// Path returns the default config file path.
func Path(getenv func(string) string) (string, error) {
	d, err := Dir(getenv)
	if err != nil {
		return "", err
	}
	return filepath.Join(d, fileName), nil
}

// Load reads the configuration. An empty path means the default location,
// where a missing file yields defaults; an explicit path must exist.
// Values absent from the file keep their defaults, then environment
// fallbacks fill what is still empty. The result is validated.
func Load(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := Path(getenv)
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(ExpandPath(path)) // #nosec G304 -- user-supplied config path
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = getenv(EnvOutputDir)
	}
	if v := getenv(EnvLogMode); v != "" {
		cfg.LogMode = v
	}
	cfg.OutputDir = ExpandPath(cfg.OutputDir)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decode overlays YAML on cfg and rejects unknown keys.
func decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%v: %w", err, ErrInvalid)
	}
	return nil
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Workers < 1 {
		add("workers must be at least 1, got %d", c.Workers)
	}
	switch strings.ToLower(c.LogMode) {
	case "dev", "prod", "production", "":
	default:
		add("log_mode must be 'dev' or 'prod', got %q", c.LogMode)
	}
	if c.Quality.MinDurationSeconds < 0 || c.Quality.MinScenes < 0 || c.Quality.MinWords < 0 {
		add("quality thresholds must not be negative")
	}
	if c.Refine.MinBorders < 0 {
		add("refine.min_borders must not be negative, got %d", c.Refine.MinBorders)
	}
	if c.Split.FuzzyThreshold < 0 || c.Split.FuzzyThreshold > 100 {
		add("split.fuzzy_threshold must be within 0-100, got %v", c.Split.FuzzyThreshold)
	}
	if c.Split.OpeningWords < 1 {
		add("split.opening_words must be at least 1, got %d", c.Split.OpeningWords)
	}
	if c.Timestamp.PrefixWords < 1 {
		add("timestamp.prefix_words must be at least 1, got %d", c.Timestamp.PrefixWords)
	}
	if _, err := cohesion.ParseMode(c.Cohesion.Mode); err != nil {
		add("cohesion.mode: %v", err)
	}
	if c.Cohesion.K < 0 || c.Cohesion.K > 1 {
		add("cohesion.k must be within 0-1, got %v", c.Cohesion.K)
	}
	if c.Cohesion.CacheWeight <= 0 || c.Cohesion.CacheWeight >= 1 {
		add("cohesion.cache_weight must be within (0, 1), got %v", c.Cohesion.CacheWeight)
	}
	if _, err := propose.ParseProvider(c.Proposer.Provider); err != nil {
		add("proposer.provider: %v", err)
	}
	if c.Proposer.MaxRetries < 0 {
		add("proposer.max_retries must not be negative, got %d", c.Proposer.MaxRetries)
	}
	if _, err := align.ParseBackend(c.Align.Backend); err != nil {
		add("align.backend: %v", err)
	}
	if err := lang.Validate(c.Align.Language); err != nil {
		add("align.language: %v", err)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(problems, "; "), ErrInvalid)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ResolveOutputDir picks the output root: an explicit argument wins, then
// the configured directory.
func ResolveOutputDir(arg, configured string) (string, error) {
	switch {
	case arg != "":
		return filepath.Clean(ExpandPath(arg)), nil
	case configured != "":
		return filepath.Clean(configured), nil
	}
	return "", fmt.Errorf("no output directory (pass one or set %s): %w", EnvOutputDir, ErrInvalid)
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
