package transcript

import "errors"

// ErrInputMissing indicates a metadata or record file does not exist.
var ErrInputMissing = errors.New("input file not found")

// ErrInvalidMetadata indicates a metadata file could not be decoded or violates
// the expected shape (negative duration, segment ending before it starts).
var ErrInvalidMetadata = errors.New("invalid metadata")

// ErrInvalidRecord indicates a persisted chunk record could not be decoded.
var ErrInvalidRecord = errors.New("invalid chunk record")
