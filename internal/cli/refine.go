package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/format"
	"github.com/alnah/go-videochunk/internal/pipeline"
)

// RefineCmd creates the refine command.
// The env parameter provides injectable dependencies for testing.
func RefineCmd(env *Env) *cobra.Command {
	var (
		successDir string
		minBorders int
	)

	cmd := &cobra.Command{
		Use:   "refine <record-dir>",
		Short: "Re-run border refinement on stored records",
		Long: `Re-run border refinement on every record in a directory.

Each record's raw borders are refined again with the current rules and the
record is rewritten in place. Records left with at least the minimum number
of refined borders count as successes and are copied to --success-dir when
it is given.`,
		Example: `  videochunk refine ./chunks/travel
  videochunk refine ./chunks/travel --success-dir ./refined/travel --min-borders 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefine(cmd, env, args[0], successDir, minBorders)
		},
	}

	cmd.Flags().StringVar(&successDir, "success-dir", "", "Copy records with enough refined borders here")
	cmd.Flags().IntVar(&minBorders, "min-borders", -1, "Minimum refined borders (default: config)")

	return cmd
}

func runRefine(cmd *cobra.Command, env *Env, dir, successDir string, minBorders int) error {
	ctx := cmd.Context()

	if err := requireFile(dir); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, env)
	if err != nil {
		return err
	}
	if minBorders >= 0 {
		cfg.Refine.MinBorders = minBorders
	}

	log, err := newLogger(env, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	batch := pipeline.NewBatch(newPipeline(cfg, log), pipeline.NewStore(), pipeline.WithBatchLogger(log))
	sum, err := batch.RefineDir(ctx, dir, successDir)

	w := env.Stdout
	_, _ = fmt.Fprintf(w, "Refined %d records\n", sum.Files)
	_, _ = fmt.Fprintf(w, "  enough borders: %s\n", format.Ratio(sum.Succeeded, sum.Files))
	if successDir != "" {
		_, _ = fmt.Fprintf(w, "  copied:         %d -> %s\n", sum.Copied, successDir)
	}
	_, _ = fmt.Fprintf(w, "  failed:         %d\n", sum.Failed)
	return err
}
