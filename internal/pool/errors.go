package pool

import "errors"

// Error kinds surfaced to the boundary layer. Each maps to a stable response
// classification; callers branch with errors.Is and can still reach the
// underlying remote.RestrictionError through errors.As.
var (
	// ErrNotAuthenticated reports an operation on an identity with no
	// resident handle. Recoverable: the caller must log in first.
	ErrNotAuthenticated = errors.New("not authenticated: login first")

	// ErrAuthenticationFailed reports a failed fresh login (bad credentials
	// or a restriction raised during login).
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRemoteRestricted reports that the remote API refused a rehydration
	// or operation for reasons outside local control. The persisted blob is
	// kept, it may still be valid later.
	ErrRemoteRestricted = errors.New("remote api restricted")

	// ErrSessionCorrupt reports a persisted blob that failed to rehydrate
	// for a non-restriction reason. The blob is dropped; re-authenticate.
	ErrSessionCorrupt = errors.New("session load failed")
)
