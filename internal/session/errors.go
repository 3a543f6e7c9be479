package session

import "errors"

// Sentinel errors - Session state
var (
	ErrNoSession   = errors.New("session: no active session")
	ErrInvalidRole = errors.New("session: invalid role")
)

// Sentinel errors - Refresh
var (
	// ErrRefreshUnavailable means no refresh token or role was stored; no
	// network call was made.
	ErrRefreshUnavailable = errors.New("session: refresh unavailable")
	// ErrRefreshFailed means no new access token was obtained: the call
	// failed, or the stored refresh credentials could not be read.
	ErrRefreshFailed = errors.New("session: refresh failed")
)
