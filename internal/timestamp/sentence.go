package timestamp

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/alnah/go-videochunk/internal/transcript"
)

// SentenceMapper maps chunks to time using segment character offsets.
type SentenceMapper struct {
	segments  []transcript.Segment
	text      string
	skipSpace bool
}

// SentenceOption configures a SentenceMapper.
type SentenceOption func(*SentenceMapper)

// WithSkipSpace measures each chunk from its first to its last non-space
// character. A chunk that opens with the previous segment's trailing space
// then starts at its own segment instead of the previous one.
func WithSkipSpace(on bool) SentenceOption {
	return func(m *SentenceMapper) {
		m.skipSpace = on
	}
}

// NewSentenceMapper creates a mapper over the given segments.
func NewSentenceMapper(segments []transcript.Segment, opts ...SentenceOption) *SentenceMapper {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	m := &SentenceMapper{segments: segments, text: b.String()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map walks the segments with a running character count. A chunk covering
// [from, to) of the transcript starts at the first segment whose cumulative
// length exceeds from and ends at the first segment whose cumulative length
// reaches to. Times stay nil when no segment qualifies.
func (m *SentenceMapper) Map(p Plan) (Mapping, error) {
	if joined := strings.Join(p.Pieces, ""); joined != m.text {
		return Mapping{}, fmt.Errorf("pieces span %d bytes, transcript %d: %w",
			len(joined), len(m.text), ErrTextMismatch)
	}

	out := Mapping{Chunks: make([]transcript.Chunk, 0, len(p.Pieces))}
	cursor := 0
	for _, piece := range p.Pieces {
		from, to := cursor, cursor+len(piece)
		if trimmed := strings.TrimLeftFunc(piece, unicode.IsSpace); m.skipSpace && trimmed != "" {
			from += len(piece) - len(trimmed)
			to = cursor + len(strings.TrimRightFunc(piece, unicode.IsSpace))
		}

		chunk := transcript.Chunk{Text: strings.TrimSpace(piece)}
		acc := 0
		for _, seg := range m.segments {
			segLen := len(seg.Text)
			if chunk.Start == nil && from < acc+segLen {
				chunk.Start = ptr(float64(seg.Start))
			}
			acc += segLen
			if acc >= to {
				chunk.End = ptr(float64(seg.End))
				break
			}
		}
		out.Chunks = append(out.Chunks, chunk)
		cursor += len(piece)
	}
	return out, nil
}
