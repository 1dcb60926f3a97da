package pipeline

import "errors"

// ErrNoProposer indicates Process was called without a boundary proposer.
var ErrNoProposer = errors.New("no boundary proposer configured")

// ErrNoChunks indicates a stage needs chunks the record does not have yet.
var ErrNoChunks = errors.New("record has no chunks")

// ErrNoBorders indicates a stage needs refined borders the record lacks.
var ErrNoBorders = errors.New("record has no refined borders")

// ErrAlignFailed marks any failure of the aligner backend, including API
// errors it passes through.
var ErrAlignFailed = errors.New("word alignment failed")
