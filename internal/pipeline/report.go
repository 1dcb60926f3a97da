package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/alnah/go-videochunk/internal/quality"
	"github.com/alnah/go-videochunk/internal/sentence"
	"github.com/alnah/go-videochunk/internal/timestamp"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// QualityRow is the assessment of one metadata file.
type QualityRow struct {
	Item   Item
	Passed bool
	Detail quality.Detail
	Err    error
}

// QualityReport assesses every metadata file under root without proposing
// anything. Unreadable files are reported per row and not tallied.
func (p *Pipeline) QualityReport(ctx context.Context, root string) (quality.Tally, []QualityRow, error) {
	var tally quality.Tally
	items, err := Discover(root, "")
	if err != nil {
		return tally, nil, err
	}
	rows := make([]QualityRow, 0, len(items))
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return tally, rows, err
		}
		row := QualityRow{Item: it}
		meta, err := transcript.LoadMetadata(it.MetadataPath)
		if err != nil {
			row.Err = err
			rows = append(rows, row)
			continue
		}
		row.Passed, row.Detail = p.filter.Assess(meta)
		tally.Add(row.Passed, row.Detail)
		rows = append(rows, row)
	}
	return tally, rows, nil
}

// SentenceRow is one sentence with the segment times it spans.
type SentenceRow struct {
	Span  sentence.Span
	Start *float64
	End   *float64
}

// Sentences segments the metadata text and maps each sentence to segment
// times the same way chunks are mapped.
func (p *Pipeline) Sentences(meta transcript.Metadata) ([]SentenceRow, error) {
	text := meta.Text()
	if strings.TrimSpace(text) == "" {
		return []SentenceRow{}, nil
	}
	spans, err := p.segmenter.Segment(text)
	if err != nil {
		return nil, err
	}

	pieces := make([]string, len(spans))
	for i, s := range spans {
		pieces[i] = s.Text
	}
	mapper := timestamp.NewSentenceMapper(meta.Segments, timestamp.WithSkipSpace(p.skipSpace))
	mapping, err := mapper.Map(timestamp.Plan{Pieces: pieces})
	if err != nil {
		return nil, fmt.Errorf("map sentence times: %w", err)
	}

	rows := make([]SentenceRow, len(spans))
	for i, s := range spans {
		rows[i] = SentenceRow{Span: s, Start: mapping.Chunks[i].Start, End: mapping.Chunks[i].End}
	}
	return rows, nil
}
