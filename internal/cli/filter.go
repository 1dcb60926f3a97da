package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/format"
)

// FilterCmd creates the filter command.
// The env parameter provides injectable dependencies for testing.
func FilterCmd(env *Env) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "filter <metadata-root>",
		Short: "Report how many transcripts pass the quality filter",
		Long: `Assess every metadata file under <metadata-root>/<category>/ against the
configured quality thresholds (duration, scene count, word count) and print
how many pass each criterion. Nothing is proposed or written.`,
		Example: `  videochunk filter ./metadata
  videochunk filter ./metadata -v`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, env, args[0], verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the assessment of every transcript")

	return cmd
}

func runFilter(cmd *cobra.Command, env *Env, root string, verbose bool) error {
	ctx := cmd.Context()

	if err := requireFile(root); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, env)
	if err != nil {
		return err
	}
	log, err := newLogger(env, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	tally, rows, err := newPipeline(cfg, log).QualityReport(ctx, root)
	if err != nil {
		return err
	}

	w := env.Stdout
	if verbose {
		for _, r := range rows {
			name := filepath.Join(r.Item.Category, r.Item.Name)
			switch {
			case r.Err != nil:
				_, _ = fmt.Fprintf(w, "ERROR %s: %v\n", name, r.Err)
			case r.Passed:
				_, _ = fmt.Fprintf(w, "PASS  %s\n", name)
			default:
				_, _ = fmt.Fprintf(w, "FAIL  %s: %s\n", name, r.Detail.Reason)
			}
		}
	}

	q := cfg.Quality
	_, _ = fmt.Fprintf(w, "Assessed %d transcripts\n", tally.Total)
	_, _ = fmt.Fprintf(w, "  duration >= %gs:  %s\n", q.MinDurationSeconds, format.Ratio(tally.DurationOK, tally.Total))
	_, _ = fmt.Fprintf(w, "  scenes >= %d:      %s\n", q.MinScenes, format.Ratio(tally.ScenesOK, tally.Total))
	_, _ = fmt.Fprintf(w, "  words >= %d:     %s\n", q.MinWords, format.Ratio(tally.WordsOK, tally.Total))
	_, _ = fmt.Fprintf(w, "  passed:           %s\n", format.Ratio(tally.Passed, tally.Total))
	return nil
}
