// Package headers defines the HTTP header names shared between the Threadline
// Go SDK and the platform. Keep header strings here rather than inline.
package headers

const (
	// RequestID correlates a request across client logs and platform traces.
	// Supplying it also makes POST retries idempotent.
	RequestID = "X-Threadline-Request-Id"

	// APIKey carries the secret key for API key authentication.
	APIKey = "X-Threadline-Api-Key" //nolint:gosec // This is a header name, not a credential
)
