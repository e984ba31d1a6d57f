package provider

import (
	"context"

	"github.com/jyfmidi/shuxinyuan-express/internal/auth"
)

// SSOProvider defines the contract the external identity provider
// must implement. Implementations return identity facts only and
// must not perform session management.
type SSOProvider interface {
	// BuildLoginURL returns the provider authorization URL for the
	// given CSRF state token.
	BuildLoginURL(state string) string

	// Exchange trades the one-time authorization code for a
	// normalized user profile. The second return value is the access
	// token used to establish identity; callers may bind it to the
	// session.
	Exchange(ctx context.Context, code string) (*auth.ExchangeResult, string, error)
}
