// Package apierr provides shared error sentinels and retry infrastructure
// for the remote services the pipeline calls (chat completion for border
// proposals, speech APIs for word alignment). Provider-specific errors are
// classified into these sentinels at the adapter boundary.
//
// Adapters wrap with fmt.Errorf("%s: %w", msg, sentinel); callers check with
// errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import "errors"

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exceeded (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out or the server failed transiently.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrMalformedResponse indicates the API answered but the payload could
	// not be interpreted (no choices, unparsable output).
	ErrMalformedResponse = errors.New("malformed API response")
)
