package ffmpeg_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/alnah/go-videochunk/internal/ffmpeg"
)

type fakeEnv struct {
	vars     map[string]string
	files    map[string]bool
	onPath   map[string]string
	lookedUp []string
}

func (f *fakeEnv) Getenv(key string) string { return f.vars[key] }

func (f *fakeEnv) Stat(name string) (os.FileInfo, error) {
	if f.files[name] {
		return nil, nil
	}
	return nil, os.ErrNotExist
}

func (f *fakeEnv) LookPath(file string) (string, error) {
	f.lookedUp = append(f.lookedUp, file)
	if p, ok := f.onPath[file]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

var _ ffmpeg.EnvProvider = (*fakeEnv)(nil)

// ---------------------------------------------------------------------------
// TestResolve
// ---------------------------------------------------------------------------

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     *fakeEnv
		goos    string
		want    string
		wantErr error
	}{
		{
			name: "env override wins",
			env: &fakeEnv{
				vars:   map[string]string{"FFMPEG_PATH": "/opt/ffmpeg"},
				files:  map[string]bool{"/opt/ffmpeg": true},
				onPath: map[string]string{"ffmpeg": "/usr/bin/ffmpeg"},
			},
			want: "/opt/ffmpeg",
		},
		{
			name:    "env override pointing nowhere",
			env:     &fakeEnv{vars: map[string]string{"FFMPEG_PATH": "/missing"}},
			wantErr: ffmpeg.ErrNotFound,
		},
		{
			name: "PATH lookup",
			env:  &fakeEnv{onPath: map[string]string{"ffmpeg": "/usr/bin/ffmpeg"}},
			want: "/usr/bin/ffmpeg",
		},
		{
			name: "windows binary name",
			env:  &fakeEnv{onPath: map[string]string{"ffmpeg.exe": `C:\ffmpeg\ffmpeg.exe`}},
			goos: "windows",
			want: `C:\ffmpeg\ffmpeg.exe`,
		},
		{
			name:    "nothing installed",
			env:     &fakeEnv{},
			wantErr: ffmpeg.ErrNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			goos := tt.goos
			if goos == "" {
				goos = "linux"
			}
			r := ffmpeg.NewResolver(ffmpeg.WithEnvProvider(tt.env), ffmpeg.WithGOOS(goos))
			got, err := r.Resolve(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Resolve() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestVersion
// ---------------------------------------------------------------------------

func TestVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		output    string
		err       error
		wantMajor int
		wantOK    bool
		outdated  bool
	}{
		{"release build", "ffmpeg version 6.1.1 Copyright (c) 2000-2023\nbuilt with gcc", nil, 6, true, false},
		{"git build", "ffmpeg version n7.0-12-gabc Copyright", nil, 7, true, false},
		{"old release", "ffmpeg version 3.4.8", nil, 3, true, true},
		{"garbage", "command not found", nil, 0, false, false},
		{"no output", "", errors.New("exec failed"), 0, false, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotArgs []string
			e := ffmpeg.NewExecutor(ffmpeg.WithRunOutput(func(_ context.Context, _ string, args []string) (string, error) {
				gotArgs = args
				return tt.output, tt.err
			}))
			major, ok := ffmpeg.Version(context.Background(), e, "/usr/bin/ffmpeg")
			if major != tt.wantMajor || ok != tt.wantOK {
				t.Errorf("Version() = %d, %v; want %d, %v", major, ok, tt.wantMajor, tt.wantOK)
			}
			if ok && ffmpeg.Outdated(major) != tt.outdated {
				t.Errorf("Outdated(%d) = %v", major, !tt.outdated)
			}
			if len(gotArgs) != 1 || gotArgs[0] != "-version" {
				t.Errorf("args = %v", gotArgs)
			}
		})
	}
}
