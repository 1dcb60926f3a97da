package cli

// Export internal functions for testing.

// APIKeyFor exports apiKeyFor for testing.
var APIKeyFor = apiKeyFor

// AlignText exports alignText for testing.
var AlignText = alignText

// Preview exports preview for testing.
var Preview = preview

// RetryHook exports retryHook for testing.
var RetryHook = retryHook
