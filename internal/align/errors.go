package align

import "errors"

// ErrNoWords indicates the backend returned no timed words.
var ErrNoWords = errors.New("aligner returned no timed words")

// ErrUnknownBackend indicates an unsupported aligner backend name.
var ErrUnknownBackend = errors.New("unknown aligner backend")

// ErrBackendFailed indicates the alignment backend itself failed
// (helper process crash, unreadable output).
var ErrBackendFailed = errors.New("alignment backend failed")
