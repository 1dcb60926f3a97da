// Package timestamp attaches media time ranges to chunks.
//
// Two strategies exist and they are not interchangeable. SentenceMapper keeps
// the transcript text and derives times from segment character offsets.
// WordMapper rebuilds chunk text from aligned words, so its chunk text can
// differ from the transcript wording (spacing, punctuation, recognition
// errors). Records keep the two results in separate fields.
package timestamp

import (
	"errors"

	"github.com/alnah/go-videochunk/internal/transcript"
)

// ErrTextMismatch indicates the chunk pieces do not reproduce the segment text.
var ErrTextMismatch = errors.New("chunk text does not match transcript")

// ErrInvalidDuration indicates the media duration is missing or not positive.
var ErrInvalidDuration = errors.New("invalid media duration")

// Plan is the input to a Mapper.
type Plan struct {
	// Pieces are the untrimmed chunk slices, in order; they must concatenate
	// to the transcript text.
	Pieces []string
	// Borders are the refined border strings that produced the cuts.
	Borders []string
}

// Mapping is the output of a Mapper.
type Mapping struct {
	Chunks []transcript.Chunk
	// Skipped lists borders that could not be placed in time.
	Skipped []string
}

// Mapper assigns time ranges to chunks.
type Mapper interface {
	Map(p Plan) (Mapping, error)
}

// Compile-time interface compliance checks.
var (
	_ Mapper = (*SentenceMapper)(nil)
	_ Mapper = (*WordMapper)(nil)
)

func ptr(f float64) *float64 {
	return &f
}
