package errors

import "errors"

// Centralized sentinel errors for the application. Services return these
// (wrapped with context via %w) instead of HTTP status codes; the API layer
// maps them to responses with errors.Is in one place.

var (
	// ErrNotFound signifies that a requested resource could not be located.
	// Mapped to 404 Not Found.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that client input failed business rule
	// validation. Mapped to 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedMedia signifies an attachment of a media type outside the
	// upload allowlist. Mapped to 415 Unsupported Media Type.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrRateLimited signifies that a guest caller exhausted the daily quota.
	// Mapped to 429 Too Many Requests; the limiter attaches its own metadata.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInternal signifies an unexpected server-side error. A generic message
	// is sent to the client to avoid leaking implementation details.
	// Mapped to 500 Internal Server Error.
	ErrInternal = errors.New("internal server error")
)
