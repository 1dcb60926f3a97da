package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// RawBorder is a proposed topic boundary: the closing words of one chunk and
// the opening words of the next, verbatim from the proposer.
// It serializes as a two-element JSON array.
type RawBorder struct {
	Prefix string
	Suffix string
}

// MarshalJSON encodes the border as [prefix, suffix].
func (b RawBorder) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{b.Prefix, b.Suffix})
}

// UnmarshalJSON decodes a [prefix, suffix] pair.
func (b *RawBorder) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("border must have 2 elements, got %d", len(pair))
	}
	b.Prefix, b.Suffix = pair[0], pair[1]
	return nil
}

// Chunk is a contiguous slice of transcript with its media time range.
// Start and End are null when no segment could be attributed.
type Chunk struct {
	Text  string   `json:"text"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// Metrics holds the cohesion scores of a chunking.
type Metrics struct {
	BC      []float64          `json:"bc"`
	CS      float64            `json:"cs"`
	Mode    string             `json:"mode"`
	K       float64            `json:"k"`
	Edges   map[string]float64 `json:"edges"`
	Degrees []int              `json:"degrees"`
}

// Record is the persisted result for one transcript.
// Fields are filled progressively by the propose, refine, split, align and
// score stages; a stage never clears what an earlier stage wrote.
type Record struct {
	MetadataFile      string      `json:"metadata_file"`
	TopicCount        int         `json:"topic_count"`
	Titles            []string    `json:"titles"`
	RawBoundaryOutput string      `json:"raw_boundary_output"`
	Borders           []RawBorder `json:"borders"`
	NewBorders        []*string   `json:"new_borders"`
	Chunks            []Chunk     `json:"chunks,omitempty"`
	WordChunks        []Chunk     `json:"word_chunks,omitempty"`
	Metrics           *Metrics    `json:"metrics,omitempty"`
}

// RefinedBorders returns the non-null refined borders, in order.
func (r Record) RefinedBorders() []string {
	out := make([]string, 0, len(r.NewBorders))
	for _, b := range r.NewBorders {
		if b != nil {
			out = append(out, *b)
		}
	}
	return out
}

// ChunkTexts returns the text of each sentence-mapped chunk.
func (r Record) ChunkTexts() []string {
	out := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Text
	}
	return out
}

// LoadRecord reads a persisted chunk record.
func LoadRecord(path string) (Record, error) {
	var r Record

	data, err := os.ReadFile(path) // #nosec G304 -- path is a pipeline output file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, fmt.Errorf("%s: %w", path, ErrInputMissing)
		}
		return r, fmt.Errorf("read record: %w", err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("%s: %v: %w", path, err, ErrInvalidRecord)
	}
	return r, nil
}
