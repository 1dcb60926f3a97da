package cohesion

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// DefaultCacheWeight is the interpolation weight of the context cache.
const DefaultCacheWeight = 0.5

// CacheLM is a small deterministic language model for offline scoring.
//
// PPL uses an add-one smoothed unigram model estimated from a background
// corpus (typically all chunks of the transcript being scored).
// ConditionalPPL interpolates that model with a cache model built from the
// conditioning text, so text that reuses the context's vocabulary becomes
// more predictable. It needs no model weights and gives the same result on
// every run.
type CacheLM struct {
	counts map[string]int
	total  int
	weight float64
}

// NewCacheLM estimates the background model from corpus. weight outside
// (0, 1) falls back to DefaultCacheWeight.
func NewCacheLM(corpus []string, weight float64) *CacheLM {
	if weight <= 0 || weight >= 1 {
		weight = DefaultCacheWeight
	}
	lm := &CacheLM{counts: make(map[string]int), weight: weight}
	for _, doc := range corpus {
		for _, tok := range Tokens(doc) {
			lm.counts[tok]++
			lm.total++
		}
	}
	return lm
}

// Compile-time interface compliance check.
var _ Scorer = (*CacheLM)(nil)

// PPL returns the unigram perplexity of text.
func (lm *CacheLM) PPL(_ context.Context, text string) (float64, error) {
	return lm.perplexity(Tokens(text), nil, 0), nil
}

// ConditionalPPL returns the perplexity of text under the background model
// interpolated with a unigram cache of ctxText.
func (lm *CacheLM) ConditionalPPL(_ context.Context, text, ctxText string) (float64, error) {
	cache := make(map[string]int)
	ctxTokens := Tokens(ctxText)
	for _, tok := range ctxTokens {
		cache[tok]++
	}
	return lm.perplexity(Tokens(text), cache, len(ctxTokens)), nil
}

func (lm *CacheLM) perplexity(tokens []string, cache map[string]int, cacheTotal int) float64 {
	if len(tokens) == 0 {
		return 1.0
	}
	vocab := float64(len(lm.counts) + 1)
	logSum := 0.0
	for _, tok := range tokens {
		p := (float64(lm.counts[tok]) + 1) / (float64(lm.total) + vocab)
		if cacheTotal > 0 {
			p = (1-lm.weight)*p + lm.weight*float64(cache[tok])/float64(cacheTotal)
		}
		logSum += math.Log(p)
	}
	return math.Exp(-logSum / float64(len(tokens)))
}

// Tokens lower-cases text and splits it into word tokens. Letters and digits
// form words; each Han character is a token of its own.
func Tokens(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			out = append(out, string(r))
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cur.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()
	return out
}
