package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without
// leaking infrastructure details or matching on message text.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrRateLimited covers both the per-account send cooldown and the
	// request dedup gate. Wrap with a RetryAfterError to carry the
	// remaining seconds to the client.
	ErrRateLimited = errors.New("rate limited")

	// ErrPrecondition marks a state-machine call made from the wrong step
	// (e.g. verifying the email-change SMS before requesting the change).
	ErrPrecondition = errors.New("precondition failed")

	// OTP outcomes. Expected user-facing results, surfaced as 400s —
	// never 5xx.
	ErrCodeExpired       = errors.New("code expired")
	ErrAttemptsExhausted = errors.New("attempts exhausted")
	ErrInvalidCode       = errors.New("invalid code")

	// ErrUnavailable marks transient upstream failure (SMS/email provider,
	// store connectivity). Retried internally before surfacing.
	ErrUnavailable = errors.New("upstream unavailable")
)

// RetryAfterError decorates ErrRateLimited with the seconds a client must
// wait before retrying.
type RetryAfterError struct {
	Seconds int
}

func (e *RetryAfterError) Error() string { return "rate limited" }

func (e *RetryAfterError) Unwrap() error { return ErrRateLimited }
