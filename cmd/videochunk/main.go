package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/align"
	"github.com/alnah/go-videochunk/internal/apierr"
	"github.com/alnah/go-videochunk/internal/audio"
	"github.com/alnah/go-videochunk/internal/cli"
	"github.com/alnah/go-videochunk/internal/cohesion"
	"github.com/alnah/go-videochunk/internal/config"
	"github.com/alnah/go-videochunk/internal/ffmpeg"
	"github.com/alnah/go-videochunk/internal/lang"
	"github.com/alnah/go-videochunk/internal/logger"
	"github.com/alnah/go-videochunk/internal/observability"
	"github.com/alnah/go-videochunk/internal/pipeline"
	"github.com/alnah/go-videochunk/internal/propose"
	"github.com/alnah/go-videochunk/internal/sentence"
	"github.com/alnah/go-videochunk/internal/timestamp"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitProposer   = 5
	ExitAlignment  = 6
	ExitInterrupt  = 130
)

const traceFlushTimeout = 5 * time.Second

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Tracing starts before the config is read, so it logs in the mode
	// named by the environment.
	log, err := logger.New(os.Getenv(config.EnvLogMode))
	if err != nil {
		log = logger.NewNop()
	}
	shutdown := observability.Init(ctx, log, observability.Config{
		ServiceName: "videochunk",
		Version:     version,
	})

	err = newRootCmd(cli.DefaultEnv()).ExecuteContext(ctx)

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), traceFlushTimeout)
	if serr := shutdown(flushCtx); serr != nil {
		log.Warn("trace shutdown failed", "error", serr)
	}
	cancelFlush()
	log.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(exitCode(err))
	}
}

// newRootCmd assembles the command tree around env.
func newRootCmd(env *cli.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "videochunk",
		Short: "Split video transcripts into topic-coherent, timestamped chunks",
		Long: `Split video transcripts into topic-coherent, timestamped chunks.

A language model proposes topic boundaries, which are refined, located in
the transcript and mapped back to media time through segment or word
timings. Cohesion metrics score how well the chunks separate topics.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().String(cli.ConfigFlag, "", "Config file (default: $XDG_CONFIG_HOME/videochunk/config.yaml)")

	// Subcommands.
	rootCmd.AddCommand(cli.RunCmd(env))
	rootCmd.AddCommand(cli.RefineCmd(env))
	rootCmd.AddCommand(cli.SplitCmd(env))
	rootCmd.AddCommand(cli.AlignCmd(env))
	rootCmd.AddCommand(cli.ScoreCmd(env))
	rootCmd.AddCommand(cli.FilterCmd(env))
	rootCmd.AddCommand(cli.SentencesCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, cli.ErrAPIKeyMissing) ||
		errors.Is(err, cli.ErrDeepSeekKeyMissing) || errors.Is(err, propose.ErrEmptyAPIKey) ||
		errors.Is(err, propose.ErrUnknownProvider) || errors.Is(err, align.ErrUnknownBackend) ||
		errors.Is(err, config.ErrInvalid) || errors.Is(err, cli.ErrConfigExists) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, transcript.ErrInputMissing) || errors.Is(err, transcript.ErrInvalidMetadata) ||
		errors.Is(err, transcript.ErrInvalidRecord) || errors.Is(err, lang.ErrInvalid) ||
		errors.Is(err, sentence.ErrOffsetMismatch) || errors.Is(err, timestamp.ErrTextMismatch) ||
		errors.Is(err, timestamp.ErrInvalidDuration) || errors.Is(err, pipeline.ErrNoBorders) ||
		errors.Is(err, pipeline.ErrNoChunks) || errors.Is(err, cohesion.ErrInvalidMode) ||
		errors.Is(err, cli.ErrInvalidFlag) || errors.Is(err, audio.ErrFileNotFound) {
		return ExitValidation
	}

	// Alignment errors (ExitAlignment = 6). Checked before API errors so a
	// failing transcription API is reported as an alignment failure.
	if errors.Is(err, pipeline.ErrAlignFailed) || errors.Is(err, align.ErrNoWords) ||
		errors.Is(err, align.ErrBackendFailed) || errors.Is(err, audio.ErrExtractFailed) ||
		errors.Is(err, audio.ErrTooLarge) || errors.Is(err, audio.ErrNoDuration) {
		return ExitAlignment
	}

	// Proposer errors (ExitProposer = 5).
	if errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrAuthFailed) ||
		errors.Is(err, apierr.ErrBadRequest) || errors.Is(err, apierr.ErrMalformedResponse) ||
		errors.Is(err, propose.ErrEmptyText) || errors.Is(err, propose.ErrTranscriptTooLong) ||
		errors.Is(err, pipeline.ErrNoProposer) {
		return ExitProposer
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
