package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/cohesion"
	"github.com/alnah/go-videochunk/internal/config"
	"github.com/alnah/go-videochunk/internal/logger"
	"github.com/alnah/go-videochunk/internal/pipeline"
	"github.com/alnah/go-videochunk/internal/propose"
	"github.com/alnah/go-videochunk/internal/split"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// Environment variable names for API keys.
const (
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvDeepSeekAPIKey = "DEEPSEEK_API_KEY"
)

// ConfigFlag is the root persistent flag naming an explicit config file.
const ConfigFlag = "config"

// loadConfig loads the configuration named by --config, or the default one.
func loadConfig(cmd *cobra.Command, env *Env) (config.Config, error) {
	path := ""
	if f := cmd.Flag(ConfigFlag); f != nil {
		path = f.Value.String()
	}
	return env.ConfigLoader.Load(path)
}

// apiKeyFor returns the API key of the proposer provider.
func apiKeyFor(p propose.Provider, getenv func(string) string) (string, error) {
	if p == propose.ProviderDeepSeek {
		if key := getenv(EnvDeepSeekAPIKey); key != "" {
			return key, nil
		}
		return "", ErrDeepSeekKeyMissing
	}
	if key := getenv(EnvOpenAIAPIKey); key != "" {
		return key, nil
	}
	return "", ErrAPIKeyMissing
}

func newLogger(env *Env, cfg config.Config) (*logger.Logger, error) {
	log, err := env.LoggerFactory.NewLogger(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

// newPipeline builds a Pipeline from the configured thresholds.
func newPipeline(cfg config.Config, log *logger.Logger, opts ...pipeline.Option) *pipeline.Pipeline {
	base := []pipeline.Option{
		pipeline.WithQuality(cfg.Quality.Thresholds()),
		pipeline.WithSplitter(split.New(
			split.WithFuzzyThreshold(cfg.Split.FuzzyThreshold),
			split.WithOpeningWords(cfg.Split.OpeningWords),
		)),
		pipeline.WithMinBorders(cfg.Refine.MinBorders),
		pipeline.WithPrefixWords(cfg.Timestamp.PrefixWords),
		pipeline.WithSkipSpace(cfg.Timestamp.SkipSpace),
		pipeline.WithCohesion(cohesion.Mode(cfg.Cohesion.Mode), cfg.Cohesion.K, cfg.Cohesion.CacheWeight),
		pipeline.WithLogger(log),
	}
	return pipeline.New(append(base, opts...)...)
}

// requireFile fails with transcript.ErrInputMissing when path is absent.
func requireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, transcript.ErrInputMissing)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}

// preview shortens text to n runes for terminal output.
func preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
