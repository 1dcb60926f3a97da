package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
	ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrDeepSeekKeyMissing indicates DEEPSEEK_API_KEY environment variable is not set.
	ErrDeepSeekKeyMissing = errors.New("DEEPSEEK_API_KEY environment variable not set")

	// ErrInvalidFlag indicates a flag value out of range.
	ErrInvalidFlag = errors.New("invalid flag value")

	// ErrConfigExists indicates config init would overwrite an existing file.
	ErrConfigExists = errors.New("config file already exists")
)
