package ffmpeg

import (
	"os"
	"os/exec"
)

// envProvider abstracts environment and path lookup.
type envProvider interface {
	Getenv(key string) string
	Stat(name string) (os.FileInfo, error)
	LookPath(file string) (string, error)
}

// Compile-time interface verification.
var _ envProvider = osEnvProvider{}

// osEnvProvider implements envProvider with the os and exec packages.
type osEnvProvider struct{}

func (osEnvProvider) Getenv(key string) string { return os.Getenv(key) }

func (osEnvProvider) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (osEnvProvider) LookPath(file string) (string, error) { return exec.LookPath(file) }
