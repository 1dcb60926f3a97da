package ffmpeg

import "errors"

// ErrNotFound indicates no FFmpeg binary could be located.
var ErrNotFound = errors.New("ffmpeg not found")
