// Package sentence splits transcript text into sentence spans whose
// concatenation reproduces the input exactly.
package sentence

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is one sentence with its byte range in the source text.
// Text includes any whitespace absorbed from the gap that follows the
// sentence, so that spans tile the source text without holes.
type Span struct {
	Start    int
	End      int
	Text     string
	Sentence string // Text without surrounding whitespace.
}

// Tokenizer returns the sentences of text, in order, trimmed of surrounding
// whitespace. Each returned sentence must occur verbatim in text.
type Tokenizer func(text string) []string

// Segmenter turns text into sentence spans.
type Segmenter struct {
	tokenize Tokenizer
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithTokenizer replaces the built-in rule-based tokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(s *Segmenter) {
		if t != nil {
			s.tokenize = t
		}
	}
}

// New creates a Segmenter.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{tokenize: Tokenize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment splits text into spans using the default tokenizer.
func Segment(text string) ([]Span, error) {
	return New().Segment(text)
}

// Segment tokenizes text and locates each sentence by searching forward from
// the end of the previous one. Whitespace between sentences is attached to
// the preceding span (leading whitespace to the first span).
func (s *Segmenter) Segment(text string) ([]Span, error) {
	if text == "" {
		return nil, nil
	}
	sentences := s.tokenize(text)
	if len(sentences) == 0 {
		return []Span{{Start: 0, End: len(text), Text: text}}, nil
	}

	spans := make([]Span, 0, len(sentences))
	cursor := 0
	for i, sent := range sentences {
		idx := strings.Index(text[cursor:], sent)
		if sent == "" || idx < 0 {
			return nil, fmt.Errorf("sentence %d %q not found after offset %d: %w",
				i, truncate(sent, 40), cursor, ErrOffsetMismatch)
		}
		found := cursor + idx
		if gap := text[cursor:found]; strings.TrimSpace(gap) != "" {
			return nil, fmt.Errorf("sentence %d skips %q at offset %d: %w",
				i, truncate(gap, 40), cursor, ErrOffsetMismatch)
		}

		start := found
		if len(spans) == 0 {
			start = 0
		} else {
			spans[len(spans)-1].End = found
		}
		spans = append(spans, Span{Start: start, End: found + len(sent), Sentence: sent})
		cursor = found + len(sent)
	}

	if tail := text[cursor:]; strings.TrimSpace(tail) != "" {
		return nil, fmt.Errorf("text after offset %d not covered by any sentence: %w",
			cursor, ErrOffsetMismatch)
	}
	spans[len(spans)-1].End = len(text)

	for i := range spans {
		spans[i].Text = text[spans[i].Start:spans[i].End]
	}
	return spans, nil
}

// Terminal reports whether r ends a sentence.
func Terminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// wide terminators end a sentence even without following whitespace.
func wide(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func closing(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '」', '』', '»':
		return true
	}
	return false
}

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "st": true,
	"vs": true, "etc": true, "e.g": true, "i.e": true, "jr": true, "sr": true,
}

// Tokenize is the built-in rule-based sentence tokenizer.
// A sentence ends after a run of terminal punctuation (plus closing quotes or
// brackets) that is followed by whitespace or the end of the text. Full-width
// terminators end a sentence unconditionally. Common abbreviations and
// decimal points do not end sentences.
func Tokenize(text string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !Terminal(r) {
			i += size
			continue
		}

		end := i + size
		isWide := wide(r)
		for end < len(text) {
			next, n := utf8.DecodeRuneInString(text[end:])
			if !Terminal(next) && !closing(next) {
				break
			}
			isWide = isWide || wide(next)
			end += n
		}

		boundary := end == len(text)
		if !boundary {
			next, _ := utf8.DecodeRuneInString(text[end:])
			boundary = isWide || unicode.IsSpace(next)
		}
		if boundary && r == '.' && isAbbreviation(text[start:i]) {
			boundary = false
		}

		if boundary {
			if sent := strings.TrimSpace(text[start:end]); sent != "" {
				out = append(out, sent)
			}
			start = end
		}
		i = end
	}
	if sent := strings.TrimSpace(text[start:]); sent != "" {
		out = append(out, sent)
	}
	return out
}

func isAbbreviation(before string) bool {
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return false
	}
	return abbreviations[strings.ToLower(fields[len(fields)-1])]
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
