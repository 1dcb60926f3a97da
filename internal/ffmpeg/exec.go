package ffmpeg

import (
	"bytes"
	"context"
	"os/exec"
)

// runOutputFn runs a command and returns its combined stdout and stderr.
type runOutputFn func(ctx context.Context, path string, args []string) (string, error)

// Executor runs FFmpeg with an injectable runner.
type Executor struct {
	runOutput runOutputFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunOutput sets a custom runner (for testing).
func WithRunOutput(fn runOutputFn) ExecutorOption {
	return func(e *Executor) { e.runOutput = fn }
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{runOutput: defaultRunOutput}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOutput executes FFmpeg and returns its combined output. Probe
// information and errors go to stderr, the -version banner to stdout. The
// output is returned even when FFmpeg exits non-zero.
func (e *Executor) RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return e.runOutput(ctx, ffmpegPath, args)
}

func defaultRunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	// #nosec G204 -- ffmpegPath comes from Resolver, args are built internally
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}
