package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/format"
	"github.com/alnah/go-videochunk/internal/pipeline"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// SplitCmd creates the split command.
// The env parameter provides injectable dependencies for testing.
func SplitCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <record.json> [metadata.json]",
		Short: "Split a transcript at a record's refined borders",
		Long: `Split a transcript at a record's refined borders and map each chunk
to segment times.

The metadata file defaults to the one the record was produced from. A record
that has raw borders but was never refined is refined first. Borders that
cannot be located in the text are reported and skipped.`,
		Example: `  videochunk split ./chunks/travel/sample_001.json
  videochunk split record.json ./metadata/travel/sample_001.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			metaPath := ""
			if len(args) > 1 {
				metaPath = args[1]
			}
			return runSplit(cmd, env, args[0], metaPath)
		},
	}
	return cmd
}

func runSplit(cmd *cobra.Command, env *Env, recordPath, metaPath string) error {
	ctx := cmd.Context()

	store := pipeline.NewStore()
	rec, err := store.Load(recordPath)
	if err != nil {
		return err
	}
	if metaPath == "" {
		metaPath = rec.MetadataFile
	}
	meta, err := transcript.LoadMetadata(metaPath)
	if err != nil {
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

	pl := newPipeline(cfg, log)
	if len(rec.NewBorders) == 0 && len(rec.Borders) > 0 {
		rec = pl.Refine(rec)
	}

	rec, warnings, err := pl.Split(ctx, rec, meta)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		_, _ = fmt.Fprintf(env.Stderr, "Warning: %s\n", w)
	}
	if err := saveRecord(env, store, recordPath, rec); err != nil {
		return err
	}

	for i, c := range rec.Chunks {
		_, _ = fmt.Fprintf(env.Stdout, "%3d  %s  %s\n", i, format.Span(c.Start, c.End), preview(c.Text, 60))
	}
	return nil
}

// saveRecord writes rec and reports where it went.
func saveRecord(env *Env, store *pipeline.Store, path string, rec transcript.Record) error {
	if err := store.Save(path, rec); err != nil {
		return err
	}
	if info, err := os.Stat(path); err == nil {
		_, _ = fmt.Fprintf(env.Stderr, "Saved %s (%s)\n", path, format.Size(info.Size()))
	}
	return nil
}
