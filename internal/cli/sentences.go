package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/format"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// SentencesCmd creates the sentences command.
// The env parameter provides injectable dependencies for testing.
func SentencesCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "sentences <metadata.json>",
		Short: "Print a transcript's sentences with their segment times",
		Long: `Segment a transcript into sentences and print each one with the time
range of the segments it spans. Useful to check segmentation before a run.`,
		Example: `  videochunk sentences ./metadata/travel/sample_001.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSentences(cmd, env, args[0])
		},
	}
}

func runSentences(cmd *cobra.Command, env *Env, metaPath string) error {
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

	rows, err := newPipeline(cfg, log).Sentences(meta)
	if err != nil {
		return err
	}
	for i, r := range rows {
		_, _ = fmt.Fprintf(env.Stdout, "%4d  %s  %s\n", i, format.Span(r.Start, r.End), r.Span.Sentence)
	}
	_, _ = fmt.Fprintf(env.Stderr, "%d sentences\n", len(rows))
	return nil
}
