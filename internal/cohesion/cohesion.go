// Package cohesion scores a chunking with two perplexity-based metrics.
//
// Boundary clarity (BC) for adjacent chunks d, q is PPL(q|d) / PPL(q): values
// near or above 1 mean the previous chunk does not help predict the next one,
// so the boundary is clear.
//
// Chunk separation (CS) builds a graph over chunks with an edge wherever the
// symmetrized edge strength exceeds K, then takes the base-2 Shannon entropy of
// the normalized degree distribution. A graph without edges scores 0.
package cohesion

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/alnah/go-videochunk/internal/transcript"
)

// ErrInvalidMode indicates an unknown graph mode.
var ErrInvalidMode = errors.New("invalid cohesion mode")

// Scorer computes perplexities. Implementations must return 1.0 for
// empty or whitespace-only text.
type Scorer interface {
	PPL(ctx context.Context, text string) (float64, error)
	ConditionalPPL(ctx context.Context, text, context string) (float64, error)
}

// Mode selects which chunk pairs are considered for CS edges.
type Mode string

// Graph modes.
const (
	ModeSequential Mode = "sequential"
	ModeComplete   Mode = "complete"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSequential, ModeComplete:
		return Mode(s), nil
	case "":
		return ModeSequential, nil
	}
	return "", fmt.Errorf("unknown mode %q (use 'sequential' or 'complete'): %w", s, ErrInvalidMode)
}

// DefaultK is the default edge threshold.
const DefaultK = 0.5

const minPPL = 1e-6

// Evaluator computes BC and CS with a Scorer.
type Evaluator struct {
	scorer Scorer
	mode   Mode
	k      float64
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMode sets the graph mode.
func WithMode(m Mode) Option {
	return func(e *Evaluator) {
		if m != "" {
			e.mode = m
		}
	}
}

// WithK sets the edge threshold.
func WithK(k float64) Option {
	return func(e *Evaluator) {
		e.k = k
	}
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(s Scorer, opts ...Option) *Evaluator {
	e := &Evaluator{scorer: s, mode: ModeSequential, k: DefaultK}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BoundaryClarity returns PPL(q|d) / max(PPL(q), 1e-6).
func (e *Evaluator) BoundaryClarity(ctx context.Context, q, d string) (float64, error) {
	base, cond, err := e.pair(ctx, q, d)
	if err != nil {
		return 0, err
	}
	return cond / math.Max(base, minPPL), nil
}

// Edge returns (PPL(q) - PPL(q|d)) / max(PPL(q), 1e-6), clamped to [0, 1].
func (e *Evaluator) Edge(ctx context.Context, q, d string) (float64, error) {
	base, cond, err := e.pair(ctx, q, d)
	if err != nil {
		return 0, err
	}
	return clamp01((base - cond) / math.Max(base, minPPL)), nil
}

func (e *Evaluator) pair(ctx context.Context, q, d string) (base, cond float64, err error) {
	if base, err = e.scorer.PPL(ctx, q); err != nil {
		return 0, 0, fmt.Errorf("perplexity: %w", err)
	}
	if cond, err = e.scorer.ConditionalPPL(ctx, q, d); err != nil {
		return 0, 0, fmt.Errorf("conditional perplexity: %w", err)
	}
	return base, cond, nil
}

// BoundaryClarities returns BC for every adjacent pair: element i scores
// chunk i+1 given chunk i.
func (e *Evaluator) BoundaryClarities(ctx context.Context, chunks []string) ([]float64, error) {
	if len(chunks) < 2 {
		return []float64{}, nil
	}
	out := make([]float64, 0, len(chunks)-1)
	for i := 0; i+1 < len(chunks); i++ {
		bc, err := e.BoundaryClarity(ctx, chunks[i+1], chunks[i])
		if err != nil {
			return nil, fmt.Errorf("boundary %d: %w", i, err)
		}
		out = append(out, bc)
	}
	return out, nil
}

// Edge identifies an undirected pair of chunks, I < J.
type Edge struct {
	I, J int
}

// Separation is the CS score with the graph it was computed from.
type Separation struct {
	CS      float64
	Edges   map[Edge]float64
	Degrees []int
}

// Separation builds the chunk graph and scores it.
func (e *Evaluator) Separation(ctx context.Context, chunks []string) (Separation, error) {
	n := len(chunks)
	sep := Separation{Edges: make(map[Edge]float64), Degrees: make([]int, n)}

	consider := func(i, j int) error {
		forward, err := e.Edge(ctx, chunks[j], chunks[i])
		if err != nil {
			return err
		}
		backward, err := e.Edge(ctx, chunks[i], chunks[j])
		if err != nil {
			return err
		}
		if w := math.Max(forward, backward); w > e.k {
			sep.Edges[Edge{I: i, J: j}] = w
			sep.Degrees[i]++
			sep.Degrees[j]++
		}
		return nil
	}

	switch e.mode {
	case ModeComplete:
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if err := consider(i, j); err != nil {
					return Separation{}, fmt.Errorf("edge %d-%d: %w", i, j, err)
				}
			}
		}
	case ModeSequential:
		for i := 0; i+1 < n; i++ {
			if err := consider(i, i+1); err != nil {
				return Separation{}, fmt.Errorf("edge %d-%d: %w", i, i+1, err)
			}
		}
	default:
		return Separation{}, fmt.Errorf("mode %q: %w", e.mode, ErrInvalidMode)
	}

	sep.CS = degreeEntropy(sep.Degrees, len(sep.Edges))
	return sep, nil
}

// Score computes both metrics for a chunking.
func (e *Evaluator) Score(ctx context.Context, chunks []string) (transcript.Metrics, error) {
	bc, err := e.BoundaryClarities(ctx, chunks)
	if err != nil {
		return transcript.Metrics{}, err
	}
	sep, err := e.Separation(ctx, chunks)
	if err != nil {
		return transcript.Metrics{}, err
	}

	edges := make(map[string]float64, len(sep.Edges))
	for k, w := range sep.Edges {
		edges[fmt.Sprintf("%d-%d", k.I, k.J)] = w
	}
	return transcript.Metrics{
		BC:      bc,
		CS:      sep.CS,
		Mode:    string(e.mode),
		K:       e.k,
		Edges:   edges,
		Degrees: sep.Degrees,
	}, nil
}

// degreeEntropy is the base-2 entropy of deg/(2m) over nodes with degree > 0.
func degreeEntropy(deg []int, m int) float64 {
	if m == 0 {
		return 0
	}
	total := float64(2 * m)
	h := 0.0
	for _, d := range deg {
		if d > 0 {
			p := float64(d) / total
			h -= p * math.Log2(p)
		}
	}
	return h
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
