package align

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/alnah/go-videochunk/internal/lang"
	"github.com/alnah/go-videochunk/internal/transcript"
)

//go:embed whisperx_align.py
var whisperXScript []byte

// Default WhisperX settings.
const (
	defaultPython       = "python3"
	defaultDevice       = "cuda"
	defaultWhisperModel = "medium"
)

// processRunner runs a helper process and returns its stdout.
type processRunner interface {
	Run(ctx context.Context, name string, args []string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name is the configured interpreter, args are temp paths and settings
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w\n%s", err, stderr.String())
	}
	return out, nil
}

// WhisperXAligner force-aligns the known transcript against the media with
// WhisperX, through an embedded Python helper. The transcript is aligned as
// one segment spanning the whole media; VAD is not applied.
type WhisperXAligner struct {
	python   string
	device   string
	model    string
	language string
	runner   processRunner
	tempDir  string
}

// WhisperXOption configures a WhisperXAligner.
type WhisperXOption func(*WhisperXAligner)

// WithPython sets the interpreter that has whisperx installed.
func WithPython(path string) WhisperXOption {
	return func(a *WhisperXAligner) {
		if path != "" {
			a.python = path
		}
	}
}

// WithDevice sets the torch device ("cuda", "cpu").
func WithDevice(device string) WhisperXOption {
	return func(a *WhisperXAligner) {
		if device != "" {
			a.device = device
		}
	}
}

// WithWhisperModel sets the ASR model used when no transcript is supplied.
func WithWhisperModel(model string) WhisperXOption {
	return func(a *WhisperXAligner) {
		if model != "" {
			a.model = model
		}
	}
}

// WithWhisperXLanguage sets the alignment model language.
func WithWhisperXLanguage(code string) WhisperXOption {
	return func(a *WhisperXAligner) {
		if code != "" {
			a.language = lang.BaseCode(code)
		}
	}
}

// withProcessRunner replaces process execution (for testing).
func withProcessRunner(r processRunner) WhisperXOption {
	return func(a *WhisperXAligner) { a.runner = r }
}

// withWhisperXTempDir sets where the helper files are written (for testing).
func withWhisperXTempDir(dir string) WhisperXOption {
	return func(a *WhisperXAligner) { a.tempDir = dir }
}

// NewWhisperXAligner creates an aligner.
func NewWhisperXAligner(opts ...WhisperXOption) *WhisperXAligner {
	a := &WhisperXAligner{
		python:   defaultPython,
		device:   defaultDevice,
		model:    defaultWhisperModel,
		language: "en",
		runner:   execRunner{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type whisperXOutput struct {
	Duration float64 `json:"duration"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Align writes the helper script and transcript to a temp dir and runs the
// helper. An empty text makes the helper transcribe the media first.
func (a *WhisperXAligner) Align(ctx context.Context, mediaPath, text string) (Alignment, error) {
	if _, err := os.Stat(mediaPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Alignment{}, fmt.Errorf("media %s: %w: %w", mediaPath, transcript.ErrInputMissing, err)
		}
		return Alignment{}, fmt.Errorf("media %s: %w", mediaPath, err)
	}

	dir, err := os.MkdirTemp(a.tempDir, "videochunk-whisperx-*")
	if err != nil {
		return Alignment{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	script := filepath.Join(dir, "whisperx_align.py")
	if err := os.WriteFile(script, whisperXScript, 0o600); err != nil {
		return Alignment{}, fmt.Errorf("write helper: %w", err)
	}
	textFile := filepath.Join(dir, "transcript.txt")
	if err := os.WriteFile(textFile, []byte(text), 0o600); err != nil {
		return Alignment{}, fmt.Errorf("write transcript: %w", err)
	}

	out, err := a.runner.Run(ctx, a.python, []string{script, mediaPath, textFile, a.language, a.device, a.model})
	if err != nil {
		if ctx.Err() != nil {
			return Alignment{}, ctx.Err()
		}
		return Alignment{}, fmt.Errorf("%w: whisperx: %v", ErrBackendFailed, err)
	}

	var res whisperXOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return Alignment{}, fmt.Errorf("%w: decode whisperx output: %v", ErrBackendFailed, err)
	}

	words := make([]transcript.WordTiming, 0, len(res.Words))
	for _, w := range res.Words {
		words = append(words, transcript.WordTiming{Word: w.Word, Start: w.Start, End: w.End})
	}
	return finish(ctx, nil, mediaPath, words, res.Duration)
}
