// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Transport classifications. Assigned once at the HTTP client boundary and
// matched upstream with errors.Is; never re-classified.
var (
	// ErrAuthExpired indicates the access token was rejected (401). Consumed by
	// the refresh coordinator; callers outside the transport never see it.
	ErrAuthExpired = errors.New("auth expired")

	// ErrSessionExpired indicates token refresh itself failed and the session
	// is gone. Terminal: the UI must force re-authentication.
	ErrSessionExpired = errors.New("session expired")

	// ErrForbidden indicates the server refused the operation (403).
	ErrForbidden = errors.New("forbidden")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("server error")

	// ErrNetworkUnavailable indicates no response was received (transport
	// failure or per-request timeout).
	ErrNetworkUnavailable = errors.New("network unavailable")
)

// Domain sentinels.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance indicates a spend larger than the current balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAlreadyClaimedToday indicates the daily reward was already claimed
	// this calendar day.
	ErrAlreadyClaimedToday = errors.New("already claimed today")

	// ErrLedgerDrift indicates a server transaction envelope that does not
	// extend the local ledger consistently.
	ErrLedgerDrift = errors.New("ledger drift")

	// ErrRateLimited indicates a temporary local lockout (OTP resend cooldown).
	ErrRateLimited = errors.New("rate limited")
)
