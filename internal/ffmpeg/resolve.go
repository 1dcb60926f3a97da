// Package ffmpeg locates the FFmpeg binary and runs it.
package ffmpeg

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// EnvFFmpegPath overrides the FFmpeg binary location.
const EnvFFmpegPath = "FFMPEG_PATH"

// minMajorVersion is the oldest FFmpeg release known to handle the
// extraction arguments used by the audio package.
const minMajorVersion = 4

// Resolver finds FFmpeg.
type Resolver struct {
	env  envProvider
	goos string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEnvProvider sets the environment implementation (for testing).
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithGOOS sets the target OS (for testing the binary name).
func WithGOOS(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{env: osEnvProvider{}, goos: runtime.GOOS}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the FFmpeg path: FFMPEG_PATH when set and present,
// otherwise the binary found on PATH.
func (r *Resolver) Resolve(_ context.Context) (string, error) {
	if p := strings.TrimSpace(r.env.Getenv(EnvFFmpegPath)); p != "" {
		if _, err := r.env.Stat(p); err != nil {
			return "", fmt.Errorf("%s=%q: %w", EnvFFmpegPath, p, ErrNotFound)
		}
		return p, nil
	}

	name := "ffmpeg"
	if r.goos == "windows" {
		name = "ffmpeg.exe"
	}
	p, err := r.env.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not on PATH (install it or set %s): %w", name, EnvFFmpegPath, ErrNotFound)
	}
	return p, nil
}

// Version runs "ffmpeg -version" and returns the major version.
// ok is false when the banner cannot be parsed.
func Version(ctx context.Context, e *Executor, ffmpegPath string) (major int, ok bool) {
	out, err := e.RunOutput(ctx, ffmpegPath, []string{"-version"})
	if err != nil && out == "" {
		return 0, false
	}
	first, _, _ := strings.Cut(out, "\n")
	if _, err := fmt.Sscanf(first, "ffmpeg version %d", &major); err == nil {
		return major, true
	}
	// Git builds print "ffmpeg version n6.1.1".
	if _, err := fmt.Sscanf(first, "ffmpeg version n%d", &major); err == nil {
		return major, true
	}
	return 0, false
}

// Outdated reports whether a parsed major version is below the supported floor.
func Outdated(major int) bool {
	return major < minMajorVersion
}
