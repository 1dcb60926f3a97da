package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-videochunk/internal/border"
	"github.com/alnah/go-videochunk/internal/logger"
)

// Item is one metadata file of a batch and where its record goes.
type Item struct {
	Category     string
	Name         string
	MetadataPath string
	OutputPath   string
}

// Discover lists <root>/<category>/sample_*.json in name order. Files
// directly under root and other names are ignored.
func Discover(metadataRoot, outputRoot string) ([]Item, error) {
	entries, err := os.ReadDir(metadataRoot)
	if err != nil {
		return nil, fmt.Errorf("read metadata root: %w", err)
	}
	var items []Item
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		category := e.Name()
		files, err := os.ReadDir(filepath.Join(metadataRoot, category))
		if err != nil {
			return nil, fmt.Errorf("read category %s: %w", category, err)
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasPrefix(name, "sample_") || !strings.HasSuffix(name, ".json") {
				continue
			}
			items = append(items, Item{
				Category:     category,
				Name:         name,
				MetadataPath: filepath.Join(metadataRoot, category, name),
				OutputPath:   filepath.Join(outputRoot, category, name),
			})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

// Summary counts batch outcomes.
type Summary struct {
	RunID      string
	Total      int
	Chunked    int
	FewBorders int
	Rejected   int
	Existing   int
	Failed     int
}

// Batch runs a Pipeline over many transcripts. Each transcript is
// independent: a failure is logged and recorded, and the batch moves on.
type Batch struct {
	pl      *Pipeline
	store   *Store
	workers int
	force   bool
	log     *logger.Logger
	newID   func() string
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithWorkers sets how many transcripts are processed at once.
func WithWorkers(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithForce regenerates records that already exist.
func WithForce(force bool) BatchOption {
	return func(b *Batch) { b.force = force }
}

// WithBatchLogger sets the logger.
func WithBatchLogger(l *logger.Logger) BatchOption {
	return func(b *Batch) {
		if l != nil {
			b.log = l
		}
	}
}

// withRunID fixes the run id (for testing).
func withRunID(id string) BatchOption {
	return func(b *Batch) { b.newID = func() string { return id } }
}

// NewBatch creates a Batch.
func NewBatch(pl *Pipeline, store *Store, opts ...BatchOption) *Batch {
	b := &Batch{
		pl:      pl,
		store:   store,
		workers: 1,
		log:     logger.NewNop(),
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run processes every item under metadataRoot. The returned error is only
// set when the context ends the run early.
func (b *Batch) Run(ctx context.Context, metadataRoot, outputRoot string) (Summary, error) {
	sum := Summary{RunID: b.newID()}
	log := b.log.With("run_id", sum.RunID)

	items, err := Discover(metadataRoot, outputRoot)
	if err != nil {
		return sum, err
	}
	sum.Total = len(items)
	log.Info("batch started", "items", len(items), "workers", b.workers, "output", outputRoot)

	var mu sync.Mutex
	count := func(f func(*Summary)) {
		mu.Lock()
		f(&sum)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, it := range items {
		it := it
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			b.runItem(gctx, log.With("item", it.MetadataPath), it, count)
			return nil
		})
	}
	_ = g.Wait()

	log.Info("batch finished",
		"chunked", sum.Chunked, "few_borders", sum.FewBorders, "rejected", sum.Rejected,
		"existing", sum.Existing, "failed", sum.Failed)
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

func (b *Batch) runItem(ctx context.Context, log *logger.Logger, it Item, count func(func(*Summary))) {
	categoryOut := filepath.Dir(it.OutputPath)

	if !b.force && b.store.Exists(it.OutputPath) {
		log.Debug("record exists, skipping", "output", it.OutputPath)
		count(func(s *Summary) { s.Existing++ })
		return
	}

	out, err := b.pl.Process(ctx, it.MetadataPath)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		log.Error("transcript failed", "error", err)
		b.logSkip(log, categoryOut, it.Name, "error: "+err.Error())
		count(func(s *Summary) { s.Failed++ })
		return
	}
	for _, w := range out.Warnings {
		log.Warn(w)
	}

	switch out.Status {
	case StatusRejected:
		log.Info("quality rejected", "reason", out.Quality.Reason)
		b.logSkip(log, categoryOut, it.Name, out.Quality.Reason)
		count(func(s *Summary) { s.Rejected++ })
		return
	case StatusFewBorders:
		log.Warn("not enough borders to split",
			"borders", len(out.Record.Borders), "refined", border.Count(out.Record.NewBorders), "min", b.pl.minBorders)
		count(func(s *Summary) { s.FewBorders++ })
	default:
		log.Info("chunked", "chunks", len(out.Record.Chunks), "sentences", out.Sentences)
		count(func(s *Summary) { s.Chunked++ })
	}

	if err := b.store.Save(it.OutputPath, out.Record); err != nil {
		log.Error("save record failed", "error", err)
		count(func(s *Summary) { s.Failed++ })
	}
}

func (b *Batch) logSkip(log *logger.Logger, dir, item, reason string) {
	if err := b.store.LogSkip(dir, item, reason); err != nil {
		log.Warn("skip log not written", "error", err)
	}
}

// RefineSummary counts RefineDir outcomes.
type RefineSummary struct {
	Files     int
	Succeeded int
	Copied    int
	Failed    int
}

// RefineDir re-runs border refinement on every record in dir and rewrites
// it. Records that end up with enough refined borders are copied to
// successDir when it is set.
func (b *Batch) RefineDir(ctx context.Context, dir, successDir string) (RefineSummary, error) {
	var sum RefineSummary
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return sum, err
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Files++
		log := b.log.With("record", p)

		rec, err := b.store.Load(p)
		if err != nil {
			log.Error("load record failed", "error", err)
			sum.Failed++
			continue
		}
		rec = b.pl.Refine(rec)
		if err := b.store.Save(p, rec); err != nil {
			log.Error("save record failed", "error", err)
			sum.Failed++
			continue
		}
		if len(rec.NewBorders) < max(b.pl.minBorders, 1) || border.Count(rec.NewBorders) == 0 {
			log.Warn("not enough borders", "borders", len(rec.Borders), "refined", border.Count(rec.NewBorders))
			continue
		}
		sum.Succeeded++
		log.Debug("refined", "new_borders", len(rec.NewBorders))

		if successDir != "" {
			if err := b.store.Copy(p, successDir); err != nil {
				log.Error("copy to success dir failed", "error", err)
				sum.Failed++
				continue
			}
			sum.Copied++
		}
	}
	return sum, nil
}
