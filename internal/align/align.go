// Package align produces word-level timings for a video's speech. Backends
// wrap OpenAI transcription, a WhisperX forced-alignment helper and Google
// Speech-to-Text behind the Aligner interface.
package align

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-videochunk/internal/audio"
	"github.com/alnah/go-videochunk/internal/transcript"
)

// Alignment is the timed word sequence of a media file.
type Alignment struct {
	Words []transcript.WordTiming
	// Duration is the media length in seconds.
	Duration float64
}

// Aligner aligns speech in a media file. text is the known transcript; a
// backend may use it as a hint or align it directly, and may ignore it.
type Aligner interface {
	Align(ctx context.Context, mediaPath, text string) (Alignment, error)
}

// audioSource is the part of *audio.Extractor the aligners need.
type audioSource interface {
	Probe(ctx context.Context, mediaPath string) (time.Duration, error)
	Extract(ctx context.Context, mediaPath string, f audio.Format) (string, func(), error)
}

// Compile-time interface compliance checks.
var (
	_ audioSource = (*audio.Extractor)(nil)
	_ Aligner     = (*OpenAIAligner)(nil)
	_ Aligner     = (*WhisperXAligner)(nil)
	_ Aligner     = (*GCPAligner)(nil)
)

// Backend names an aligner implementation.
type Backend string

// Supported backends.
const (
	BackendOpenAI   Backend = "openai"
	BackendWhisperX Backend = "whisperx"
	BackendGCP      Backend = "gcp"
)

// ParseBackend validates a backend name. Empty means WhisperX.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendWhisperX, nil
	case BackendOpenAI, BackendWhisperX, BackendGCP:
		return b, nil
	}
	return "", fmt.Errorf("%q (use 'whisperx', 'openai' or 'gcp'): %w", s, ErrUnknownBackend)
}

// cleanWords trims words, drops empty ones and those with no usable time,
// and keeps the order the backend produced.
func cleanWords(words []transcript.WordTiming) []transcript.WordTiming {
	out := make([]transcript.WordTiming, 0, len(words))
	for _, w := range words {
		w.Word = strings.TrimSpace(w.Word)
		if w.Word == "" || w.End < w.Start || w.Start < 0 {
			continue
		}
		out = append(out, w)
	}
	return out
}

// finish validates the words and fills a missing duration from the last word
// or, failing that, from probing the media.
func finish(ctx context.Context, src audioSource, mediaPath string, words []transcript.WordTiming, duration float64) (Alignment, error) {
	words = cleanWords(words)
	if len(words) == 0 {
		return Alignment{}, fmt.Errorf("%s: %w", mediaPath, ErrNoWords)
	}
	if duration <= 0 && src != nil {
		if d, err := src.Probe(ctx, mediaPath); err == nil {
			duration = d.Seconds()
		}
	}
	if last := words[len(words)-1].End; duration < last {
		duration = last
	}
	return Alignment{Words: words, Duration: duration}, nil
}

// promptHint returns the leading words of text, enough to steer vocabulary
// and spelling without exceeding the transcription prompt limit.
func promptHint(text string, maxWords int) string {
	fields := strings.Fields(text)
	if len(fields) > maxWords {
		fields = fields[:maxWords]
	}
	return strings.Join(fields, " ")
}
