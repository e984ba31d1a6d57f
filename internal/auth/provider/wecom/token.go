package wecom

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/jyfmidi/shuxinyuan-express/internal/auth"
)

// safetyMargin is subtracted from the provider-reported lifetime so a
// token is never used right at its expiry edge.
const safetyMargin = 5 * time.Minute

// TokenCache is the single process-wide access-token slot. All
// requests share it; a valid cached token is returned without any
// network call. Concurrent refreshes may each fetch and the last
// write wins, which is harmless for idempotent bearer credentials.
type TokenCache struct {
	client *Client

	mu  sync.Mutex
	tok *oauth2.Token

	nowTime func() time.Time
}

// TokenCacheOption modifies a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) TokenCacheOption {
	return func(tc *TokenCache) {
		tc.nowTime = nowFunc
	}
}

func NewTokenCache(client *Client, options ...TokenCacheOption) *TokenCache {
	tc := &TokenCache{
		client:  client,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(tc)
	}
	return tc
}

// Token returns a valid access token, fetching a fresh one only when
// the cached slot is empty or past its effective expiry. A fetch
// failure leaves the cached state untouched.
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	if tc.tok != nil && tc.nowTime().Before(tc.tok.Expiry) {
		value := tc.tok.AccessToken
		tc.mu.Unlock()
		return value, nil
	}
	tc.mu.Unlock()

	value, lifetime, err := tc.client.FetchToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", auth.ErrCredentialFetch, err)
	}

	tok := &oauth2.Token{
		AccessToken: value,
		TokenType:   "Bearer",
		Expiry:      tc.nowTime().Add(lifetime - safetyMargin),
	}

	tc.mu.Lock()
	tc.tok = tok
	tc.mu.Unlock()

	return value, nil
}
