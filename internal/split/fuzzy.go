package split

import (
	"unicode"

	"github.com/agnivade/levenshtein"
)

// similarity returns 100 * (1 - editDistance / longerLength), in [0, 100].
func similarity(a, b []rune) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(string(a), string(b))
	return 100 * (1 - float64(d)/float64(longest))
}

// bestWindow scores needle against a same-length window at every word start
// in hay and returns the rune index and score of the best one. Ties keep the
// earliest window. index is -1 when hay has no word start.
func bestWindow(hay, needle []rune) (index int, score float64) {
	index = -1
	if len(needle) == 0 {
		return index, 0
	}
	for i := range hay {
		if unicode.IsSpace(hay[i]) || (i > 0 && !unicode.IsSpace(hay[i-1])) {
			continue
		}
		end := min(i+len(needle), len(hay))
		s := similarity(needle, hay[i:end])
		if s > score || index < 0 {
			index, score = i, s
		}
	}
	return index, score
}
