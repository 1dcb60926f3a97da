package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/config"
	"github.com/alnah/go-videochunk/internal/format"
	"github.com/alnah/go-videochunk/internal/pipeline"
	"github.com/alnah/go-videochunk/internal/propose"
)

// runOptions holds the run command's flag overrides. Zero values keep the
// configured setting.
type runOptions struct {
	workers  int
	force    bool
	score    bool
	provider string
	model    string
}

// RunCmd creates the run command.
// The env parameter provides injectable dependencies for testing.
func RunCmd(env *Env) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <metadata-root> [output-root]",
		Short: "Chunk every transcript under a metadata directory",
		Long: `Chunk every transcript under a metadata directory.

Metadata files are read from <metadata-root>/<category>/sample_*.json. Each
transcript passes the quality filter, gets topic boundaries from the
proposer, has its borders refined, and is split into timestamped chunks.
One record per transcript is written to <output-root>/<category>/.

Rejected transcripts are listed in skipped.log in their category directory.
Existing records are kept unless --force is given.

The proposer uses OpenAI by default (OPENAI_API_KEY), or DeepSeek with
--provider deepseek (DEEPSEEK_API_KEY).`,
		Example: `  videochunk run ./metadata ./chunks
  videochunk run ./metadata --workers 4 --score
  videochunk run ./metadata ./chunks --provider deepseek --force`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputArg := ""
			if len(args) > 1 {
				outputArg = args[1]
			}
			return runBatch(cmd, env, args[0], outputArg, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Transcripts processed at once (default: config workers)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Regenerate records that already exist")
	cmd.Flags().BoolVar(&opts.score, "score", false, "Compute cohesion metrics for each chunked record")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Proposer provider: openai, deepseek (default: config)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Proposer chat model (default: provider default)")

	return cmd
}

// runBatch executes the full chunking pipeline over a metadata tree.
// Validation order: input exists -> config -> overrides -> output dir -> provider -> API key
func runBatch(cmd *cobra.Command, env *Env, metadataRoot, outputArg string, opts runOptions) error {
	ctx := cmd.Context()

	if err := requireFile(metadataRoot); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, env)
	if err != nil {
		return err
	}
	if opts.workers < 0 {
		return fmt.Errorf("--workers %d: %w", opts.workers, ErrInvalidFlag)
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	if opts.provider != "" {
		cfg.Proposer.Provider = opts.provider
	}
	if opts.model != "" {
		cfg.Proposer.Model = opts.model
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	outputRoot, err := config.ResolveOutputDir(outputArg, cfg.OutputDir)
	if err != nil {
		return err
	}
	provider, err := propose.ParseProvider(cfg.Proposer.Provider)
	if err != nil {
		return err
	}
	apiKey, err := apiKeyFor(provider, env.Getenv)
	if err != nil {
		return err
	}

	log, err := newLogger(env, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	proposer, err := env.ProposerFactory.NewProposer(provider, cfg.Proposer, apiKey, log)
	if err != nil {
		return err
	}

	pl := newPipeline(cfg, log, pipeline.WithProposer(proposer), pipeline.WithScoring(opts.score))
	batch := pipeline.NewBatch(pl, pipeline.NewStore(),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithForce(opts.force),
		pipeline.WithBatchLogger(log),
	)

	_, _ = fmt.Fprintf(env.Stderr, "Chunking %s -> %s (%s, %d workers)...\n",
		metadataRoot, outputRoot, provider, cfg.Workers)
	start := env.Now()

	sum, err := batch.Run(ctx, metadataRoot, outputRoot)
	printSummary(env, sum)
	_, _ = fmt.Fprintf(env.Stderr, "Done in %s\n", format.Duration(env.Now().Sub(start)))
	return err
}

func printSummary(env *Env, sum pipeline.Summary) {
	w := env.Stdout
	_, _ = fmt.Fprintf(w, "Run %s: %d transcripts\n", sum.RunID, sum.Total)
	_, _ = fmt.Fprintf(w, "  chunked:      %s\n", format.Ratio(sum.Chunked, sum.Total))
	_, _ = fmt.Fprintf(w, "  few borders:  %s\n", format.Ratio(sum.FewBorders, sum.Total))
	_, _ = fmt.Fprintf(w, "  rejected:     %s\n", format.Ratio(sum.Rejected, sum.Total))
	_, _ = fmt.Fprintf(w, "  existing:     %s\n", format.Ratio(sum.Existing, sum.Total))
	_, _ = fmt.Fprintf(w, "  failed:       %s\n", format.Ratio(sum.Failed, sum.Total))
}
