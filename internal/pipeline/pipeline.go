// Package pipeline wires the chunking stages together: quality filter,
// sentence segmentation, boundary proposal, border refinement, splitting,
// timestamp mapping, word alignment and cohesion scoring.
//
// Stages read and extend a transcript.Record. Each can be re-run on its own
// over a stored record, which is how the CLI's refine, split, align and
// score commands work.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alnah/go-videochunk/internal/align"
	"github.com/alnah/go-videochunk/internal/border"
	"github.com/alnah/go-videochunk/internal/cohesion"
	"github.com/alnah/go-videochunk/internal/logger"
	"github.com/alnah/go-videochunk/internal/observability"
	"github.com/alnah/go-videochunk/internal/propose"
	"github.com/alnah/go-videochunk/internal/quality"
	"github.com/alnah/go-videochunk/internal/sentence"
	"github.com/alnah/go-videochunk/internal/split"
	"github.com/alnah/go-videochunk/internal/timestamp"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// Pipeline runs the chunking stages for one transcript at a time. It holds
// no per-transcript state and is safe for concurrent use when its proposer
// and aligner are.
type Pipeline struct {
	proposer    propose.Proposer
	filter      *quality.Filter
	segmenter   *sentence.Segmenter
	splitter    *split.Splitter
	minBorders  int
	prefixWords int
	skipSpace   bool
	mode        cohesion.Mode
	k           float64
	cacheWeight float64
	score       bool
	log         *logger.Logger
	tracer      trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProposer sets the boundary proposer used by Process.
func WithProposer(p propose.Proposer) Option {
	return func(pl *Pipeline) { pl.proposer = p }
}

// WithQuality sets the admission thresholds.
func WithQuality(t quality.Thresholds) Option {
	return func(pl *Pipeline) { pl.filter = quality.NewFilter(t) }
}

// WithSegmenter replaces the sentence segmenter.
func WithSegmenter(s *sentence.Segmenter) Option {
	return func(pl *Pipeline) {
		if s != nil {
			pl.segmenter = s
		}
	}
}

// WithSplitter replaces the border splitter.
func WithSplitter(s *split.Splitter) Option {
	return func(pl *Pipeline) {
		if s != nil {
			pl.splitter = s
		}
	}
}

// WithMinBorders sets how many refined borders a transcript needs before it
// is split.
func WithMinBorders(n int) Option {
	return func(pl *Pipeline) {
		if n >= 0 {
			pl.minBorders = n
		}
	}
}

// WithPrefixWords sets how many leading border words the word mapper matches.
func WithPrefixWords(n int) Option {
	return func(pl *Pipeline) {
		if n > 0 {
			pl.prefixWords = n
		}
	}
}

// WithSkipSpace makes segment-time mapping ignore the whitespace a chunk
// opens and closes with.
func WithSkipSpace(on bool) Option {
	return func(pl *Pipeline) { pl.skipSpace = on }
}

// WithCohesion sets the scoring graph mode, edge threshold and cache weight.
func WithCohesion(mode cohesion.Mode, k, cacheWeight float64) Option {
	return func(pl *Pipeline) {
		pl.mode = mode
		pl.k = k
		pl.cacheWeight = cacheWeight
	}
}

// WithScoring makes Process score the chunks it produces.
func WithScoring(on bool) Option {
	return func(pl *Pipeline) { pl.score = on }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.log = l
		}
	}
}

// New creates a Pipeline with default thresholds.
func New(opts ...Option) *Pipeline {
	pl := &Pipeline{
		filter:      quality.NewFilter(quality.DefaultThresholds()),
		segmenter:   sentence.New(),
		splitter:    split.New(),
		minBorders:  border.DefaultMinBorders,
		prefixWords: timestamp.DefaultPrefixWords,
		mode:        cohesion.ModeSequential,
		k:           cohesion.DefaultK,
		cacheWeight: cohesion.DefaultCacheWeight,
		log:         logger.NewNop(),
		tracer:      observability.Tracer(),
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// Status is the result class of Process.
type Status string

// Process outcomes.
const (
	StatusChunked  Status = "chunked"
	StatusRejected Status = "rejected"
	// StatusFewBorders means fewer refined borders than the minimum survived;
	// the record is kept with no chunks.
	StatusFewBorders Status = "few_borders"
)

// Outcome is what Process produced for one transcript.
type Outcome struct {
	Status    Status
	Record    transcript.Record
	Quality   quality.Detail
	Sentences int
	// Warnings are non-fatal diagnostics (count mismatches, unmatched borders).
	Warnings []string
}

// Process runs every stage for the metadata file at path. A quality
// rejection is an outcome, not an error; input, segmentation and proposer
// failures are errors.
func (p *Pipeline) Process(ctx context.Context, path string) (out Outcome, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(attribute.String("metadata", path)))
	defer func() { endSpan(span, err) }()

	if p.proposer == nil {
		return out, ErrNoProposer
	}

	meta, err := transcript.LoadMetadata(path)
	if err != nil {
		return out, err
	}

	passed, detail := p.filter.Assess(meta)
	out.Quality = detail
	span.SetAttributes(attribute.Bool("quality.passed", passed))
	if !passed {
		out.Status = StatusRejected
		return out, nil
	}

	text := meta.Text()
	spans, err := p.segmenter.Segment(text)
	if err != nil {
		return out, fmt.Errorf("segment %s: %w", path, err)
	}
	out.Sentences = len(spans)

	proposal, err := p.propose(ctx, text)
	if err != nil {
		return out, fmt.Errorf("propose %s: %w", path, err)
	}
	rec := transcript.Record{
		MetadataFile:      path,
		TopicCount:        proposal.TopicCount,
		Titles:            proposal.Titles,
		RawBoundaryOutput: proposal.RawOutput,
		Borders:           proposal.RawBorders,
	}
	if rec.Borders == nil {
		rec.Borders = []transcript.RawBorder{}
	}
	if got, want := len(proposal.RawBorders), proposal.Expected(); got != want {
		out.Warnings = append(out.Warnings, fmt.Sprintf("proposer returned %d borders, expected %d", got, want))
	}

	rec = p.Refine(rec)
	if border.Count(rec.NewBorders) == 0 {
		out.Status = StatusFewBorders
		out.Record = rec
		return out, nil
	}

	rec, warnings, err := p.Split(ctx, rec, meta)
	out.Warnings = append(out.Warnings, warnings...)
	if err != nil {
		return out, err
	}

	if p.score {
		if rec, err = p.Score(ctx, rec); err != nil {
			return out, err
		}
	}

	out.Status = StatusChunked
	out.Record = rec
	return out, nil
}

func (p *Pipeline) propose(ctx context.Context, text string) (propose.Proposal, error) {
	ctx, span := p.tracer.Start(ctx, "stage.propose")
	prop, err := p.proposer.Propose(ctx, text)
	if err == nil {
		span.SetAttributes(
			attribute.Int("topic_count", prop.TopicCount),
			attribute.Int("raw_borders", len(prop.RawBorders)),
		)
	}
	endSpan(span, err)
	return prop, err
}

// Refine fills NewBorders from the raw borders. Below the minimum the
// refined set is empty, and the record's chunks are left untouched. Process
// treats a set with no usable border like an empty one.
func (p *Pipeline) Refine(rec transcript.Record) transcript.Record {
	rec.NewBorders = border.RefineAll(rec.Borders, p.minBorders)
	return rec
}

// Split cuts the metadata text at the record's refined borders and maps the
// chunks to segment times. Unlocated borders and count mismatches come back
// as warnings.
func (p *Pipeline) Split(ctx context.Context, rec transcript.Record, meta transcript.Metadata) (out transcript.Record, warnings []string, err error) {
	_, span := p.tracer.Start(ctx, "stage.split")
	defer func() { endSpan(span, err) }()

	borders := rec.RefinedBorders()
	if len(borders) == 0 {
		return rec, nil, ErrNoBorders
	}

	res := p.splitter.Split(meta.Text(), borders)
	for _, b := range res.Unmatched() {
		warnings = append(warnings, fmt.Sprintf("border not found: %q", b))
	}
	if res.Mismatch() {
		warnings = append(warnings, fmt.Sprintf("chunk count %d, expected %d", len(res.Chunks), res.Expected))
	}
	span.SetAttributes(attribute.Int("chunks", len(res.Chunks)), attribute.Int("cuts", len(res.Cuts)))

	mapper := timestamp.NewSentenceMapper(meta.Segments, timestamp.WithSkipSpace(p.skipSpace))
	mapping, err := mapper.Map(timestamp.Plan{Pieces: res.Pieces, Borders: borders})
	if err != nil {
		return rec, warnings, fmt.Errorf("map chunk times: %w", err)
	}
	rec.Chunks = mapping.Chunks
	return rec, warnings, nil
}

// Align gets word timings for the media and places the record's refined
// borders on them, filling WordChunks. Borders whose words cannot be found
// are returned as skipped.
func (p *Pipeline) Align(ctx context.Context, rec transcript.Record, a align.Aligner, mediaPath, text string) (out transcript.Record, skipped []string, err error) {
	ctx, span := p.tracer.Start(ctx, "stage.align", trace.WithAttributes(attribute.String("media", mediaPath)))
	defer func() { endSpan(span, err) }()

	borders := rec.RefinedBorders()
	if len(borders) == 0 {
		return rec, nil, ErrNoBorders
	}

	al, err := a.Align(ctx, mediaPath, text)
	if err != nil {
		return rec, nil, fmt.Errorf("align %s: %w: %w", mediaPath, ErrAlignFailed, err)
	}
	span.SetAttributes(attribute.Int("words", len(al.Words)), attribute.Float64("duration", al.Duration))

	mapping, err := timestamp.NewWordMapper(al.Words, al.Duration, timestamp.WithPrefixWords(p.prefixWords)).
		Map(timestamp.Plan{Borders: borders})
	if err != nil {
		return rec, nil, fmt.Errorf("map word times: %w", err)
	}
	rec.WordChunks = mapping.Chunks
	return rec, mapping.Skipped, nil
}

// Score computes boundary clarity and chunk separation over the record's
// chunks with a cache language model built from those chunks.
func (p *Pipeline) Score(ctx context.Context, rec transcript.Record) (out transcript.Record, err error) {
	ctx, span := p.tracer.Start(ctx, "stage.score")
	defer func() { endSpan(span, err) }()

	texts := rec.ChunkTexts()
	if len(texts) == 0 {
		return rec, ErrNoChunks
	}

	lm := cohesion.NewCacheLM(texts, p.cacheWeight)
	ev := cohesion.NewEvaluator(lm, cohesion.WithMode(p.mode), cohesion.WithK(p.k))
	m, err := ev.Score(ctx, texts)
	if err != nil {
		return rec, fmt.Errorf("score: %w", err)
	}
	span.SetAttributes(attribute.Float64("cs", m.CS), attribute.Int("edges", len(m.Edges)))
	rec.Metrics = &m
	return rec, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}
