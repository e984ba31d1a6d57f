package auth

import "errors"

var (
	// ErrCredentialFetch means the provider token endpoint was
	// unreachable or rejected the request. Infrastructure-level,
	// not user-caused.
	ErrCredentialFetch = errors.New("credential fetch failed")

	// ErrInvalidAuthorizationCode means the provider rejected the
	// user's authorization code (expired, reused or malformed).
	ErrInvalidAuthorizationCode = errors.New("invalid authorization code")

	// ErrAuthInfrastructure covers any failure before identity is
	// established. Surfaced to the browser as a generic failure,
	// never exposing provider internals.
	ErrAuthInfrastructure = errors.New("authentication infrastructure failure")

	// ErrSession covers session store read/write/destroy failures.
	ErrSession = errors.New("session store failure")
)

// IsInvalidCode reports whether err stems from a rejected
// authorization code rather than infrastructure trouble.
func IsInvalidCode(err error) bool {
	return errors.Is(err, ErrInvalidAuthorizationCode)
}
