package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jyfmidi/shuxinyuan-express/internal/session"
)

const sessionContextKey = "session"

// SessionFromContext extracts the authenticated session attached by
// RequireAuth.
func SessionFromContext(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok
}

type AuthMiddleware struct {
	Store session.Store
}

func NewAuthMiddleware(store session.Store) *AuthMiddleware {
	return &AuthMiddleware{Store: store}
}

// RequireAuth resolves the session cookie to a stored session and
// attaches it to the request context. Unknown, expired or missing
// sessions are rejected as unauthenticated.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Request.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			unauthenticated(c)
			return
		}

		sessionID := cookie.Value

		sess, err := a.Store.Get(c.Request.Context(), sessionID)
		if err != nil || sess == nil {
			unauthenticated(c)
			return
		}

		if time.Now().After(sess.ExpiresAt) {
			_ = a.Store.Delete(c.Request.Context(), sessionID)
			unauthenticated(c)
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

func unauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      "Not logged in",
		"isLoggedIn": false,
	})
}
