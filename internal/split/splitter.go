// Package split cuts a transcript into chunks at refined borders.
//
// Each border is located in the transcript (exact, case-insensitive; then a
// fuzzy fallback) and the cut is moved back to just after the nearest
// preceding sentence-terminal punctuation, so no chunk starts or ends inside
// a sentence.
package split

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alnah/go-videochunk/internal/sentence"
)

// Defaults.
const (
	DefaultFuzzyThreshold = 60
	DefaultOpeningWords   = 8
)

// Method tells how a border was located.
type Method string

// Location methods.
const (
	MethodExact Method = "exact"
	MethodFuzzy Method = "fuzzy"
	MethodNone  Method = "unmatched"
)

// Match describes what happened to one border.
type Match struct {
	Border   string
	Method   Method
	Score    float64 // similarity for fuzzy matches, 100 for exact ones
	Position int     // byte offset of the match, -1 when unmatched
	Cut      int     // byte offset of the resulting cut, -1 when dropped
}

// Result is the outcome of Split.
type Result struct {
	// Pieces are the untrimmed slices between cuts; they concatenate to the input.
	Pieces []string
	// Chunks are Pieces with surrounding whitespace removed.
	Chunks []string
	// Cuts are the sorted, distinct byte offsets where the text was cut.
	Cuts     []int
	Matches  []Match
	Expected int
}

// Mismatch reports whether the chunk count differs from len(borders)+1.
func (r Result) Mismatch() bool {
	return len(r.Chunks) != r.Expected
}

// Unmatched returns the borders that could not be located.
func (r Result) Unmatched() []string {
	var out []string
	for _, m := range r.Matches {
		if m.Method == MethodNone {
			out = append(out, m.Border)
		}
	}
	return out
}

// Splitter locates borders and slices text.
type Splitter struct {
	threshold    float64
	openingWords int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithFuzzyThreshold sets the minimum similarity (0-100) for a fuzzy match.
func WithFuzzyThreshold(v float64) Option {
	return func(s *Splitter) {
		if v >= 0 && v <= 100 {
			s.threshold = v
		}
	}
}

// WithOpeningWords sets how many leading words of a border are searched for.
func WithOpeningWords(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.openingWords = n
		}
	}
}

// New creates a Splitter.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		threshold:    DefaultFuzzyThreshold,
		openingWords: DefaultOpeningWords,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split cuts text at borders. It never fails: borders that cannot be located
// or that snap back to the start of the text are recorded in Matches and
// skipped, which leaves fewer chunks than len(borders)+1.
func (s *Splitter) Split(text string, borders []string) Result {
	res := Result{Expected: len(borders) + 1}

	runes := []rune(text)
	folded := make([]rune, len(runes))
	for i, r := range runes {
		folded[i] = unicode.ToLower(r)
	}
	offsets := byteOffsets(text, len(runes))

	seen := make(map[int]bool)
	for _, b := range borders {
		m := Match{Border: b, Method: MethodNone, Position: -1, Cut: -1}
		pos := s.locate(folded, b, &m)
		if pos >= 0 {
			m.Position = offsets[pos]
			if cut := snap(runes, pos); cut > 0 {
				byteCut := offsets[cut]
				if strings.TrimSpace(text[byteCut:]) != "" {
					m.Cut = byteCut
					if !seen[byteCut] {
						seen[byteCut] = true
						res.Cuts = append(res.Cuts, byteCut)
					}
				}
			}
		}
		res.Matches = append(res.Matches, m)
	}
	sort.Ints(res.Cuts)

	if strings.TrimSpace(text) == "" {
		return res
	}
	prev := 0
	for _, c := range append(res.Cuts, len(text)) {
		piece := text[prev:c]
		res.Pieces = append(res.Pieces, piece)
		res.Chunks = append(res.Chunks, strings.TrimSpace(piece))
		prev = c
	}
	return res
}

// locate returns the rune index where border's opening words start in
// folded, or -1.
func (s *Splitter) locate(folded []rune, border string, m *Match) int {
	fields := strings.Fields(strings.ToLower(border))
	if len(fields) == 0 {
		return -1
	}
	if len(fields) > s.openingWords {
		fields = fields[:s.openingWords]
	}
	needle := []rune(strings.Join(fields, " "))

	if idx := indexRunes(folded, needle); idx >= 0 {
		m.Method, m.Score = MethodExact, 100
		return idx
	}

	idx, score := bestWindow(folded, needle)
	if idx >= 0 && score >= s.threshold {
		m.Method, m.Score = MethodFuzzy, score
		return idx
	}
	m.Score = score
	return -1
}

// snap walks back from pos to the nearest terminal punctuation and returns
// the rune index just after it, or 0 when there is none.
func snap(runes []rune, pos int) int {
	for pos > 0 && !sentence.Terminal(runes[pos]) {
		pos--
	}
	if pos == 0 {
		return 0
	}
	return pos + 1
}

func indexRunes(hay, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(hay) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, r := range needle {
			if hay[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}

// byteOffsets maps rune index to byte offset; the extra final entry is len(text).
func byteOffsets(text string, n int) []int {
	out := make([]int, 0, n+1)
	for i := 0; i < len(text); {
		out = append(out, i)
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return append(out, len(text))
}
