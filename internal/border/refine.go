// Package border turns proposed (prefix, suffix) boundary pairs into single
// strings that mark where the next chunk starts.
package border

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alnah/go-videochunk/internal/sentence"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// DefaultMinBorders is the smallest border set worth refining.
// Below it, a transcript is considered to have too little topical structure.
const DefaultMinBorders = 3

// Refine derives the opening of the next chunk from a raw border.
// Rules are tried in order and the first that yields text wins:
//  1. the suffix starts with an upper-case letter: the whole suffix
//  2. the suffix contains terminal punctuation before its end: what follows
//     the first such mark, left-trimmed
//  3. the prefix contains terminal punctuation before its end: what follows
//     the last such mark, left-trimmed
//
// ok is false when no rule applies.
func Refine(prefix, suffix string) (string, bool) {
	if r, _ := utf8.DecodeRuneInString(suffix); suffix != "" && unicode.IsUpper(r) {
		return suffix, true
	}
	if s, ok := afterFirstTerminal(suffix); ok {
		return s, true
	}
	if s, ok := afterLastTerminal(prefix); ok {
		return s, true
	}
	return "", false
}

// RefineAll refines every raw border, keeping positions: a border no rule
// could refine is nil. When fewer than minBorders raw borders are given the
// result is empty and no border is refined.
func RefineAll(raw []transcript.RawBorder, minBorders int) []*string {
	if len(raw) < minBorders || len(raw) == 0 {
		return []*string{}
	}
	out := make([]*string, len(raw))
	for i, b := range raw {
		if s, ok := Refine(b.Prefix, b.Suffix); ok {
			out[i] = &s
		}
	}
	return out
}

// Count returns the number of non-nil refined borders.
func Count(refined []*string) int {
	n := 0
	for _, b := range refined {
		if b != nil {
			n++
		}
	}
	return n
}

func afterFirstTerminal(s string) (string, bool) {
	idx := strings.IndexFunc(s, sentence.Terminal)
	if idx < 0 {
		return "", false
	}
	_, size := utf8.DecodeRuneInString(s[idx:])
	return nonEmpty(s[idx+size:])
}

func afterLastTerminal(s string) (string, bool) {
	idx := strings.LastIndexFunc(s, sentence.Terminal)
	if idx < 0 {
		return "", false
	}
	_, size := utf8.DecodeRuneInString(s[idx:])
	return nonEmpty(s[idx+size:])
}

func nonEmpty(rest string) (string, bool) {
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	if rest == "" {
		return "", false
	}
	return rest, true
}
