// Package transcript holds the data model shared by every pipeline stage:
// time-coded transcript segments, word timings, chunks, and the persisted
// chunk record.
//
// Upstream metadata is decoded once, here, into typed values. Timecodes may
// arrive as JSON numbers (seconds) or as "HH:MM:SS.mmm" strings; both become
// Seconds at the boundary so later stages never see raw strings.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Seconds is a point in media time, in seconds from the start.
type Seconds float64

// UnmarshalJSON accepts a number of seconds or a "[HH:]MM:SS[.fff]" string.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		v, err := ParseTimecode(raw)
		if err != nil {
			return err
		}
		*s = Seconds(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("timecode must be a number or string: %w", err)
	}
	*s = Seconds(f)
	return nil
}

// ParseTimecode converts "HH:MM:SS.fff", "MM:SS.fff" or a bare "SS.fff" into seconds.
func ParseTimecode(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty timecode")
	}
	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("timecode %q has too many fields", raw)
	}

	sec, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("timecode %q: %w", raw, err)
	}
	total := sec
	mult := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, fmt.Errorf("timecode %q: %w", raw, err)
		}
		total += float64(n) * mult
		mult *= 60
	}
	if total < 0 {
		return 0, fmt.Errorf("timecode %q is negative", raw)
	}
	return total, nil
}

// Segment is one time-coded span of transcribed speech.
type Segment struct {
	Text  string  `json:"text"`
	Start Seconds `json:"start"`
	End   Seconds `json:"end"`
}

// ContentMetadata carries the scene annotations of a video.
// Only the number of scenes matters downstream, so scenes stay undecoded.
type ContentMetadata struct {
	Scenes []json.RawMessage `json:"scenes"`
}

// Metadata is the per-video input record.
type Metadata struct {
	DurationSeconds float64         `json:"duration_seconds"`
	Content         ContentMetadata `json:"content_metadata"`
	Segments        []Segment       `json:"timecoded_text_to_speech"`
}

// Text returns the segment texts joined with no separator.
// Character offsets into this string are the coordinate system used by
// splitting and timestamp mapping.
func (m Metadata) Text() string {
	var b strings.Builder
	for _, seg := range m.Segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// WordCount counts whitespace-separated tokens of Text.
func (m Metadata) WordCount() int {
	return len(strings.Fields(m.Text()))
}

// SceneCount returns the number of annotated scenes.
func (m Metadata) SceneCount() int {
	return len(m.Content.Scenes)
}

// Validate checks the invariants later stages rely on.
func (m Metadata) Validate() error {
	if m.DurationSeconds < 0 {
		return fmt.Errorf("duration_seconds is negative (%g): %w", m.DurationSeconds, ErrInvalidMetadata)
	}
	for i, seg := range m.Segments {
		if seg.Start < 0 || seg.End < seg.Start {
			return fmt.Errorf("segment %d has invalid range [%g, %g]: %w",
				i, float64(seg.Start), float64(seg.End), ErrInvalidMetadata)
		}
	}
	return nil
}

// LoadMetadata reads, decodes and validates a metadata file.
func LoadMetadata(path string) (Metadata, error) {
	var m Metadata

	data, err := os.ReadFile(path) // #nosec G304 -- path is a user-selected input file
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, fmt.Errorf("%s: %w", path, ErrInputMissing)
		}
		return m, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%s: %v: %w", path, err, ErrInvalidMetadata)
	}
	if err := m.Validate(); err != nil {
		return m, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WordTiming is a single aligned word.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
