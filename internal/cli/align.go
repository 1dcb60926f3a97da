package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/align"
	"github.com/alnah/go-videochunk/internal/format"
	"github.com/alnah/go-videochunk/internal/pipeline"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// alignOptions holds the align command's flag overrides.
type alignOptions struct {
	backend  string
	language string
	model    string
}

// AlignCmd creates the align command.
// The env parameter provides injectable dependencies for testing.
func AlignCmd(env *Env) *cobra.Command {
	var opts alignOptions

	cmd := &cobra.Command{
		Use:   "align <record.json> <media-file>",
		Short: "Place a record's borders on word-level media timings",
		Long: `Align the video's speech to word timings and place each refined border
at the start of the words it opens with. The result is stored as the
record's word_chunks next to its sentence-level chunks.

Backends:
  whisperx  Local WhisperX forced alignment of the known transcript (default)
  openai    OpenAI transcription with word timestamps (OPENAI_API_KEY)
  gcp       Google Speech-to-Text long-running recognition
            (GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS_JSON)

The openai and gcp backends extract audio with FFmpeg first.`,
		Example: `  videochunk align ./chunks/travel/sample_001.json ./videos/sample_001.mp4
  videochunk align record.json video.mp4 --backend openai --language fr
  videochunk align record.json video.mp4 --backend gcp --language pt-BR`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlign(cmd, env, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "Aligner backend: whisperx, openai, gcp (default: config)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Speech language (ISO 639-1 code, e.g., en, fr, pt-BR)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Backend model name")

	return cmd
}

// runAlign executes word alignment for one record.
// Validation order: record -> media exists -> config -> backend -> ffmpeg -> API key
func runAlign(cmd *cobra.Command, env *Env, recordPath, mediaPath string, opts alignOptions) error {
	ctx := cmd.Context()

	store := pipeline.NewStore()
	rec, err := store.Load(recordPath)
	if err != nil {
		return err
	}
	if err := requireFile(mediaPath); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, env)
	if err != nil {
		return err
	}
	if opts.backend != "" {
		cfg.Align.Backend = opts.backend
	}
	if opts.language != "" {
		cfg.Align.Language = opts.language
	}
	if opts.model != "" {
		cfg.Align.Model = opts.model
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	backend, err := align.ParseBackend(cfg.Align.Backend)
	if err != nil {
		return err
	}

	params := AlignerParams{Config: cfg.Align, Getenv: env.Getenv}
	if backend != align.BackendWhisperX {
		ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
		if err != nil {
			return err
		}
		env.FFmpegResolver.CheckVersion(ctx, ffmpegPath)
		params.FFmpegPath = ffmpegPath
	}
	if backend == align.BackendOpenAI {
		if params.APIKey = env.Getenv(EnvOpenAIAPIKey); params.APIKey == "" {
			return ErrAPIKeyMissing
		}
	}

	log, err := newLogger(env, cfg)
	if err != nil {
		return err
	}
	defer log.Sync()
	params.Log = log

	aligner, closeAligner, err := env.AlignerFactory.NewAligner(ctx, backend, params)
	if err != nil {
		return err
	}
	defer func() { _ = closeAligner() }()

	pl := newPipeline(cfg, log)
	if len(rec.NewBorders) == 0 && len(rec.Borders) > 0 {
		rec = pl.Refine(rec)
	}

	_, _ = fmt.Fprintf(env.Stderr, "Aligning %s with %s...\n", mediaPath, backend)
	rec, skipped, err := pl.Align(ctx, rec, aligner, mediaPath, alignText(rec))
	if err != nil {
		return err
	}
	for _, b := range skipped {
		_, _ = fmt.Fprintf(env.Stderr, "Warning: border not found in aligned words: %q\n", b)
	}
	if err := saveRecord(env, store, recordPath, rec); err != nil {
		return err
	}

	for i, c := range rec.WordChunks {
		_, _ = fmt.Fprintf(env.Stdout, "%3d  %s  %s\n", i, format.Span(c.Start, c.End), preview(c.Text, 60))
	}
	return nil
}

// alignText is the known transcript for the record: the metadata text when
// the metadata file is still readable, otherwise its chunks joined.
func alignText(rec transcript.Record) string {
	if rec.MetadataFile != "" {
		if meta, err := transcript.LoadMetadata(rec.MetadataFile); err == nil {
			return meta.Text()
		}
	}
	return strings.Join(rec.ChunkTexts(), "")
}
