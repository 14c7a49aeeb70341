package loan

import "errors"

var (
	// ErrValidation: bad input shape, caller's fault, no state changed.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidRequest: semantically nonsensical request (e.g. self-loan).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFoundOrProcessed: the loan does not exist for this principal in
	// the expected state — either a stale reference or another actor won
	// the race. Callers must refresh.
	ErrNotFoundOrProcessed = errors.New("loan not found or already processed")
	// ErrPrepaymentNotAllowed: early closure was requested on a loan that
	// forbids it.
	ErrPrepaymentNotAllowed = errors.New("prepayment not allowed")
	// ErrInvariantViolation signals an internal reconciliation bug (e.g.
	// outstanding would go negative). Never clamped silently.
	ErrInvariantViolation = errors.New("invariant violation")
)

// Webhook ingestion errors. Acknowledged to the sender but logged for
// operator follow-up.
var (
	ErrMalformedEvent = errors.New("malformed payment event")
	ErrUnknownOrder   = errors.New("unknown gateway order")
)
