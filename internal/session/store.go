package session

import (
	"context"
	"time"

	"github.com/jyfmidi/shuxinyuan-express/internal/auth"
)

// Session binds a browser (via cookie) to an authenticated user
// profile. AccessToken is set on real provider logins only.
type Session struct {
	SessionID   string           `json:"session_id"`
	Profile     auth.UserProfile `json:"profile"`
	AccessToken string           `json:"access_token,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
}

// Store defines how sessions are stored and retrieved.
// Get returns (nil, nil) for an unknown or expired session id.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
