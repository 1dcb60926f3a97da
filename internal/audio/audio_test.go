package audio_test

// Notes:
// - The fake runner never calls FFmpeg. For extraction it writes the output
//   file (the last argument) so size checks run against a real file in t.TempDir.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-videochunk/internal/audio"
)

type fakeRunner struct {
	output  string
	err     error
	size    int
	gotArgs []string
}

func (f *fakeRunner) CombinedOutput(_ context.Context, _ string, args []string) ([]byte, error) {
	f.gotArgs = args
	if f.size > 0 {
		if err := os.WriteFile(args[len(args)-1], make([]byte, f.size), 0o600); err != nil {
			return nil, err
		}
	}
	return []byte(f.output), f.err
}

var _ audio.CommandRunner = (*fakeRunner)(nil)

func writeMedia(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sample_3.mp4")
	if err := os.WriteFile(p, []byte("not really a video"), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

// ---------------------------------------------------------------------------
// TestParseDuration
// ---------------------------------------------------------------------------

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		output  string
		want    time.Duration
		wantErr bool
	}{
		{"header", "Input #0, mov\n  Duration: 00:08:05.52, start: 0.000000", 8*time.Minute + 5520*time.Millisecond, false},
		{"hours", "Duration: 01:02:03.5,", time.Hour + 2*time.Minute + 3500*time.Millisecond, false},
		{"progress fallback uses last stamp", "time=00:00:10.00 ... time=00:01:00.25", time.Minute + 250*time.Millisecond, false},
		{"whole seconds", "Duration: 00:00:42, bitrate", 42 * time.Second, false},
		{"nothing", "Invalid data found when processing input", 0, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := audio.ParseDuration(tt.output)
			if tt.wantErr {
				if !errors.Is(err, audio.ErrNoDuration) {
					t.Errorf("ParseDuration() error = %v, want ErrNoDuration", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseDuration() = %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestProbe
// ---------------------------------------------------------------------------

func TestProbe(t *testing.T) {
	t.Parallel()

	t.Run("parses output despite non-zero exit", func(t *testing.T) {
		t.Parallel()

		r := &fakeRunner{output: "Duration: 00:10:00.00,", err: errors.New("exit status 1")}
		e := audio.NewExtractor("ffmpeg", audio.WithCommandRunner(r))
		got, err := e.Probe(context.Background(), writeMedia(t))
		if err != nil || got != 10*time.Minute {
			t.Errorf("Probe() = %v, %v", got, err)
		}
		if r.gotArgs[0] != "-i" || r.gotArgs[len(r.gotArgs)-1] != "-" {
			t.Errorf("args = %v", r.gotArgs)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		e := audio.NewExtractor("ffmpeg", audio.WithCommandRunner(&fakeRunner{}))
		_, err := e.Probe(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
		if !errors.Is(err, audio.ErrFileNotFound) {
			t.Errorf("Probe() error = %v, want ErrFileNotFound", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestExtract
// ---------------------------------------------------------------------------

func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("flac for speech APIs", func(t *testing.T) {
		t.Parallel()

		r := &fakeRunner{size: 1024}
		e := audio.NewExtractor("ffmpeg", audio.WithCommandRunner(r), audio.WithTempDir(t.TempDir()))
		path, cleanup, err := e.Extract(context.Background(), writeMedia(t), audio.FLAC)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if filepath.Base(path) != "sample_3.flac" {
			t.Errorf("path = %q", path)
		}
		args := strings.Join(r.gotArgs, " ")
		if !strings.Contains(args, "-vn -c:a flac -ar 16000 -ac 1") {
			t.Errorf("args = %q", args)
		}
		cleanup()
		if _, err := os.Stat(filepath.Dir(path)); !os.IsNotExist(err) {
			t.Errorf("cleanup left %s behind", filepath.Dir(path))
		}
	})

	t.Run("upload limit", func(t *testing.T) {
		t.Parallel()

		small := audio.OGG
		small.MaxBytes = 10
		r := &fakeRunner{size: 11}
		e := audio.NewExtractor("ffmpeg", audio.WithCommandRunner(r), audio.WithTempDir(t.TempDir()))
		_, _, err := e.Extract(context.Background(), writeMedia(t), small)
		if !errors.Is(err, audio.ErrTooLarge) {
			t.Errorf("Extract() error = %v, want ErrTooLarge", err)
		}
	})

	t.Run("ffmpeg failure", func(t *testing.T) {
		t.Parallel()

		r := &fakeRunner{output: "Invalid data", err: errors.New("exit status 1")}
		e := audio.NewExtractor("ffmpeg", audio.WithCommandRunner(r), audio.WithTempDir(t.TempDir()))
		_, _, err := e.Extract(context.Background(), writeMedia(t), audio.OGG)
		if !errors.Is(err, audio.ErrExtractFailed) {
			t.Errorf("Extract() error = %v, want ErrExtractFailed", err)
		}
	})
}
