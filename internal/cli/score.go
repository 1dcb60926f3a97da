package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/cohesion"
	"github.com/alnah/go-videochunk/internal/pipeline"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// scoreOptions holds the score command's flag overrides.
type scoreOptions struct {
	mode string
	k    float64
}

// ScoreCmd creates the score command.
// The env parameter provides injectable dependencies for testing.
func ScoreCmd(env *Env) *cobra.Command {
	var opts scoreOptions

	cmd := &cobra.Command{
		Use:   "score <record.json>",
		Short: "Compute cohesion metrics for a record's chunks",
		Long: `Compute boundary clarity (BC) and chunk separation (CS) for a record's
chunks and store them as the record's metrics.

BC is reported per boundary: values near or above 1 mean the previous chunk
does not help predict the next one. CS is the entropy of the chunk graph's
degree distribution; 0 means no chunk pair is similar enough to link.

Graph modes:
  sequential  only adjacent chunks can be linked (default)
  complete    every chunk pair can be linked`,
		Example: `  videochunk score ./chunks/travel/sample_001.json
  videochunk score record.json --mode complete --k 0.3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, env, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", "", "Graph mode: sequential, complete (default: config)")
	cmd.Flags().Float64Var(&opts.k, "k", -1, "Edge threshold in [0, 1] (default: config)")

	return cmd
}

func runScore(cmd *cobra.Command, env *Env, recordPath string, opts scoreOptions) error {
	ctx := cmd.Context()

	store := pipeline.NewStore()
	rec, err := store.Load(recordPath)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, env)
	if err != nil {
		return err
	}
	if opts.mode != "" {
		mode, err := cohesion.ParseMode(opts.mode)
		if err != nil {
			return fmt.Errorf("--mode: %w: %w", ErrInvalidFlag, err)
		}
		cfg.Cohesion.Mode = string(mode)
	}
	if opts.k >= 0 {
		if opts.k > 1 {
			return fmt.Errorf("--k %g outside [0, 1]: %w", opts.k, ErrInvalidFlag)
		}
		cfg.Cohesion.K = opts.k
	}

	log, err := newLogger(env, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	rec, err = newPipeline(cfg, log).Score(ctx, rec)
	if err != nil {
		return err
	}
	if err := saveRecord(env, store, recordPath, rec); err != nil {
		return err
	}
	printMetrics(env, rec.Metrics)
	return nil
}

func printMetrics(env *Env, m *transcript.Metrics) {
	if m == nil {
		return
	}
	w := env.Stdout
	_, _ = fmt.Fprintf(w, "Mode %s, k = %.2f\n", m.Mode, m.K)
	for i, bc := range m.BC {
		_, _ = fmt.Fprintf(w, "  BC %d|%d  %.4f\n", i+1, i, bc)
	}
	keys := make([]string, 0, len(m.Edges))
	for k := range m.Edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "  edge %s  %.4f\n", k, m.Edges[k])
	}
	_, _ = fmt.Fprintf(w, "CS = %.4f\n", m.CS)
}
