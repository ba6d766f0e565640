package services

import "errors"

var (
	// ErrTournamentNotFound means the platform does not know the tournament id.
	ErrTournamentNotFound = errors.New("tournament not found on platform")

	// ErrMatchNotFound means the platform does not know the match id.
	ErrMatchNotFound = errors.New("match not found on platform")

	// ErrPlatformUnavailable wraps exhausted retries, open circuit breaker or
	// authentication failures against the platform API.
	ErrPlatformUnavailable = errors.New("platform api unavailable")

	// ErrStorageFailed marks a rolled-back persistence transaction.
	ErrStorageFailed = errors.New("storage write failed")

	// ErrInvalidPayload marks an inbound webhook body that was rejected
	// before any ledger write.
	ErrInvalidPayload = errors.New("invalid webhook payload")
)
