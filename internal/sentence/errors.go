package sentence

import "errors"

// ErrOffsetMismatch indicates a tokenized sentence could not be found in the
// source text at or after the current cursor. The transcript must not be
// processed further when this happens.
var ErrOffsetMismatch = errors.New("sentence offset mismatch")
