package lang

import "errors"

// ErrInvalid indicates a language no aligner backend supports.
var ErrInvalid = errors.New("unsupported alignment language")
