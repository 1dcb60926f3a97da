package propose

import "errors"

// ErrEmptyText indicates there is no transcript text to segment.
var ErrEmptyText = errors.New("transcript text is empty")

// ErrTranscriptTooLong indicates the transcript exceeds the model input limit.
var ErrTranscriptTooLong = errors.New("transcript exceeds input token limit")

// ErrEmptyAPIKey indicates that the API key was not provided.
var ErrEmptyAPIKey = errors.New("API key is required")

// ErrUnknownProvider indicates an unsupported chat completion provider.
var ErrUnknownProvider = errors.New("unknown proposer provider")
