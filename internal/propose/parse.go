package propose

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alnah/go-videochunk/internal/transcript"
)

var (
	titleLine  = regexp.MustCompile(`^\d+\.\s+(.*)$`)
	borderLine = regexp.MustCompile(`(.*?)\[BORDER\](.*)`)
)

// parseCount reads the stage-one answer. An unreadable count becomes 1 and
// the count never drops below 1. Titles are collected from numbered lines.
func parseCount(output string) (int, []string) {
	count := 1
	titles := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= len("chunk count:") && strings.EqualFold(line[:len("chunk count:")], "chunk count:") {
			n, err := strconv.Atoi(strings.TrimSpace(line[len("chunk count:"):]))
			if err != nil {
				n = 1
			}
			count = n
			continue
		}
		if m := titleLine.FindStringSubmatch(line); m != nil {
			titles = append(titles, strings.TrimSpace(m[1]))
		}
	}
	return max(1, count), titles
}

// parseBorders extracts every prefix[BORDER]suffix pair, one per line.
// Text around the marker is kept verbatim.
func parseBorders(output string) []transcript.RawBorder {
	out := []transcript.RawBorder{}
	for _, m := range borderLine.FindAllStringSubmatch(output, -1) {
		out = append(out, transcript.RawBorder{Prefix: m[1], Suffix: m[2]})
	}
	return out
}
