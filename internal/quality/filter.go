// Package quality decides whether a transcript is worth chunking.
package quality

import (
	"fmt"
	"strings"

	"github.com/alnah/go-videochunk/internal/transcript"
)

// Default thresholds.
const (
	DefaultMinDurationSeconds = 480
	DefaultMinScenes          = 3
	DefaultMinWords           = 500
)

// Thresholds are the minimums a transcript must reach on every check.
type Thresholds struct {
	MinDurationSeconds float64
	MinScenes          int
	MinWords           int
}

// DefaultThresholds returns the standard admission thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinDurationSeconds: DefaultMinDurationSeconds,
		MinScenes:          DefaultMinScenes,
		MinWords:           DefaultMinWords,
	}
}

// Detail reports each check individually.
type Detail struct {
	DurationOK bool    `json:"duration_ok"`
	ScenesOK   bool    `json:"scenes_ok"`
	WordsOK    bool    `json:"words_ok"`
	Duration   float64 `json:"duration_seconds"`
	Scenes     int     `json:"scenes"`
	Words      int     `json:"words"`
	Reason     string  `json:"reason"`
}

// Filter applies Thresholds to metadata.
type Filter struct {
	t Thresholds
}

// NewFilter creates a Filter.
func NewFilter(t Thresholds) *Filter {
	return &Filter{t: t}
}

// Assess runs the three checks. passed is true only when all of them pass.
// Rejection is a normal outcome, never an error.
func (f *Filter) Assess(m transcript.Metadata) (bool, Detail) {
	d := Detail{
		Duration: m.DurationSeconds,
		Scenes:   m.SceneCount(),
		Words:    m.WordCount(),
	}
	d.DurationOK = d.Duration >= f.t.MinDurationSeconds
	d.ScenesOK = d.Scenes >= f.t.MinScenes
	d.WordsOK = d.Words >= f.t.MinWords

	var reasons []string
	if !d.DurationOK {
		reasons = append(reasons, fmt.Sprintf("duration %.0fs below %.0fs", d.Duration, f.t.MinDurationSeconds))
	}
	if !d.ScenesOK {
		reasons = append(reasons, fmt.Sprintf("scene count %d below %d", d.Scenes, f.t.MinScenes))
	}
	if !d.WordsOK {
		reasons = append(reasons, fmt.Sprintf("word count %d below %d", d.Words, f.t.MinWords))
	}

	passed := len(reasons) == 0
	if passed {
		d.Reason = "passed"
	} else {
		d.Reason = strings.Join(reasons, "; ")
	}
	return passed, d
}

// Tally aggregates Assess outcomes over many transcripts.
type Tally struct {
	Total      int
	DurationOK int
	ScenesOK   int
	WordsOK    int
	Passed     int
}

// Add records one assessment.
func (t *Tally) Add(passed bool, d Detail) {
	t.Total++
	if d.DurationOK {
		t.DurationOK++
	}
	if d.ScenesOK {
		t.ScenesOK++
	}
	if d.WordsOK {
		t.WordsOK++
	}
	if passed {
		t.Passed++
	}
}
