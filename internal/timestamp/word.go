package timestamp

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/alnah/go-videochunk/internal/transcript"
)

// DefaultPrefixWords is how many leading words of a border are matched.
const DefaultPrefixWords = 6

// WordMapper maps borders to time through aligned word timings.
type WordMapper struct {
	words       []transcript.WordTiming
	duration    float64
	prefixWords int
}

// WordOption configures a WordMapper.
type WordOption func(*WordMapper)

// WithPrefixWords sets how many leading border words must match.
func WithPrefixWords(n int) WordOption {
	return func(m *WordMapper) {
		if n > 0 {
			m.prefixWords = n
		}
	}
}

// NewWordMapper creates a mapper over aligned words of media lasting duration seconds.
func NewWordMapper(words []transcript.WordTiming, duration float64, opts ...WordOption) *WordMapper {
	m := &WordMapper{words: words, duration: duration, prefixWords: DefaultPrefixWords}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map finds each border's leading words as a contiguous run of aligned words
// and uses the first word's start as a chunk boundary. Matching is
// case-insensitive and ignores punctuation around words. Searches resume after
// the previous match, so boundaries are strictly increasing; a border that
// cannot be found is skipped and yields one chunk fewer. The last boundary is
// the media duration.
func (m *WordMapper) Map(p Plan) (Mapping, error) {
	if m.duration <= 0 {
		return Mapping{}, fmt.Errorf("duration %g: %w", m.duration, ErrInvalidDuration)
	}

	// Index only words that survive normalization so punctuation-only tokens
	// do not break contiguous runs.
	var norm []string
	var pos []int
	for i, w := range m.words {
		if n := normalize(w.Word); n != "" {
			norm = append(norm, n)
			pos = append(pos, i)
		}
	}

	var out Mapping
	bounds := []float64{0}
	from := 0
	for _, b := range p.Borders {
		prefix := prefixOf(b, m.prefixWords)
		idx := findRun(norm, prefix, from)
		if idx < 0 {
			out.Skipped = append(out.Skipped, b)
			continue
		}
		t := m.words[pos[idx]].Start
		if t <= bounds[len(bounds)-1] || t >= m.duration {
			out.Skipped = append(out.Skipped, b)
			continue
		}
		bounds = append(bounds, t)
		from = idx + 1
	}
	bounds = append(bounds, m.duration)

	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i], bounds[i+1]
		var text []string
		for _, w := range m.words {
			if w.Start >= start && w.End <= end {
				if s := strings.TrimSpace(w.Word); s != "" {
					text = append(text, s)
				}
			}
		}
		out.Chunks = append(out.Chunks, transcript.Chunk{
			Text:  strings.Join(text, " "),
			Start: ptr(start),
			End:   ptr(end),
		})
	}
	return out, nil
}

func normalize(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}))
}

func prefixOf(border string, n int) []string {
	var out []string
	for _, f := range strings.Fields(border) {
		if w := normalize(f); w != "" {
			out = append(out, w)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

// findRun returns the first index >= from where prefix occurs in words, or -1.
func findRun(words, prefix []string, from int) int {
	if len(prefix) == 0 {
		return -1
	}
outer:
	for i := from; i+len(prefix) <= len(words); i++ {
		for j, p := range prefix {
			if words[i+j] != p {
				continue outer
			}
		}
		return i
	}
	return -1
}
