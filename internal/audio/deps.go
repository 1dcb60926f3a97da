package audio

import (
	"context"
	"os"
	"os/exec"
)

// commandRunner executes external commands and returns their combined output.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

// osCommandRunner implements commandRunner using exec.CommandContext.
type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name is the resolved ffmpeg binary, args are built internally
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// fileSystem is the subset of os the extractor touches.
type fileSystem interface {
	Stat(name string) (os.FileInfo, error)
	MkdirTemp(dir, pattern string) (string, error)
	RemoveAll(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Stat(name string) (os.FileInfo, error)         { return os.Stat(name) }
func (osFileSystem) MkdirTemp(dir, pattern string) (string, error) { return os.MkdirTemp(dir, pattern) }
func (osFileSystem) RemoveAll(path string) error                   { return os.RemoveAll(path) }
