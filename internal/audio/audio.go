// Package audio probes media files and extracts their audio track in the
// encodings the word aligners accept.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// Format describes an extraction target.
type Format struct {
	Name       string
	Ext        string
	SampleRate int
	args       []string
	// MaxBytes is the upload limit of the consuming API; 0 means unlimited.
	MaxBytes int64
}

// Extraction targets. Both are 16 kHz mono, which speech models expect.
var (
	// FLAC is lossless and accepted by Google Speech-to-Text, which caps
	// inline audio content at 10 MB.
	FLAC = Format{
		Name:       "flac",
		Ext:        ".flac",
		SampleRate: 16000,
		args:       []string{"-c:a", "flac", "-ar", "16000", "-ac", "1"},
		MaxBytes:   10 * 1024 * 1024,
	}

	// OGG is small enough for the OpenAI transcription upload limit on long videos.
	OGG = Format{
		Name:       "ogg",
		Ext:        ".ogg",
		SampleRate: 16000,
		args:       []string{"-c:a", "libvorbis", "-ar", "16000", "-ac", "1", "-q:a", "2"},
		MaxBytes:   25 * 1024 * 1024,
	}
)

var (
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
	progressRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)
)

// Extractor wraps FFmpeg for probing and extraction.
type Extractor struct {
	ffmpegPath string
	cmd        commandRunner
	fs         fileSystem
	tempDir    string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTempDir sets where extracted files are written (default os.TempDir).
func WithTempDir(dir string) Option {
	return func(e *Extractor) { e.tempDir = dir }
}

// withCommandRunner replaces command execution (for testing).
func withCommandRunner(r commandRunner) Option {
	return func(e *Extractor) { e.cmd = r }
}

// withFileSystem replaces file system access (for testing).
func withFileSystem(fs fileSystem) Option {
	return func(e *Extractor) { e.fs = fs }
}

// NewExtractor creates an Extractor for the given FFmpeg binary.
func NewExtractor(ffmpegPath string, opts ...Option) *Extractor {
	e := &Extractor{ffmpegPath: ffmpegPath, cmd: osCommandRunner{}, fs: osFileSystem{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Probe returns the media duration.
func (e *Extractor) Probe(ctx context.Context, mediaPath string) (time.Duration, error) {
	if err := e.exists(mediaPath); err != nil {
		return 0, err
	}
	// FFmpeg exits non-zero when given no output, but still prints the header.
	out, err := e.cmd.CombinedOutput(ctx, e.ffmpegPath, []string{"-i", mediaPath, "-f", "null", "-"})
	if err != nil && len(out) == 0 {
		return 0, fmt.Errorf("probe %s: %w", mediaPath, err)
	}
	return parseDuration(string(out))
}

// Extract writes the audio track of mediaPath in the given format to a fresh
// temp directory. The returned cleanup removes it; callers must call it.
func (e *Extractor) Extract(ctx context.Context, mediaPath string, f Format) (string, func(), error) {
	if err := e.exists(mediaPath); err != nil {
		return "", nil, err
	}
	dir, err := e.fs.MkdirTemp(e.tempDir, "videochunk-audio-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { _ = e.fs.RemoveAll(dir) }

	base := filepath.Base(mediaPath)
	outPath := filepath.Join(dir, base[:len(base)-len(filepath.Ext(base))]+f.Ext)

	args := append([]string{"-y", "-i", mediaPath, "-vn"}, f.args...)
	args = append(args, outPath)
	if out, err := e.cmd.CombinedOutput(ctx, e.ffmpegPath, args); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: %s: %v\nOutput: %s", ErrExtractFailed, mediaPath, err, out)
	}

	if f.MaxBytes > 0 {
		info, err := e.fs.Stat(outPath)
		if err != nil {
			cleanup()
			return "", nil, fmt.Errorf("%w: %s missing after ffmpeg: %v", ErrExtractFailed, outPath, err)
		}
		if info.Size() > f.MaxBytes {
			cleanup()
			return "", nil, fmt.Errorf("%s is %d bytes, %s limit %d: %w",
				filepath.Base(outPath), info.Size(), f.Name, f.MaxBytes, ErrTooLarge)
		}
	}
	return outPath, cleanup, nil
}

func (e *Extractor) exists(path string) error {
	if _, err := e.fs.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}

// parseDuration reads "Duration: HH:MM:SS.ff" from FFmpeg output, falling
// back to the last "time=" progress stamp.
func parseDuration(output string) (time.Duration, error) {
	if m := durationRe.FindStringSubmatch(output); m != nil {
		return clock(m[1], m[2], m[3])
	}
	if all := progressRe.FindAllStringSubmatch(output, -1); len(all) > 0 {
		m := all[len(all)-1]
		return clock(m[1], m[2], m[3])
	}
	return 0, ErrNoDuration
}

func clock(h, m, s string) (time.Duration, error) {
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("hours %q: %w", h, ErrNoDuration)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("minutes %q: %w", m, ErrNoDuration)
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("seconds %q: %w", s, ErrNoDuration)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(secs*float64(time.Second)).Round(time.Millisecond), nil
}
