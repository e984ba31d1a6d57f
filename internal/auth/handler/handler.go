package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jyfmidi/shuxinyuan-express/internal/auth"
	"github.com/jyfmidi/shuxinyuan-express/internal/auth/provider"
	"github.com/jyfmidi/shuxinyuan-express/internal/logger"
	"github.com/jyfmidi/shuxinyuan-express/internal/middleware"
	"github.com/jyfmidi/shuxinyuan-express/internal/session"
)

// Options carries the handler-level configuration.
type Options struct {
	FrontendOrigin  string
	SessionTTL      time.Duration
	SecureCookie    bool
	EnableTestLogin bool
}

type Handler struct {
	provider     provider.SSOProvider
	sessionStore session.Store
	opts         Options
}

func NewHandler(
	p provider.SSOProvider,
	sessionStore session.Store,
	opts Options,
) *Handler {
	return &Handler{
		provider:     p,
		sessionStore: sessionStore,
		opts:         opts,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, basePath string, authMW *middleware.AuthMiddleware) {
	grp := r.Group(basePath)

	grp.GET("/login_url", h.LoginURL)
	grp.GET("/callback", h.Callback)
	grp.POST("/test_login", h.TestLogin)
	grp.GET("/me", authMW.RequireAuth(), h.Me)
	grp.POST("/logout", h.Logout)
}

func (h *Handler) cookieOptions() session.CookieOptions {
	return session.CookieOptions{
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// LoginURL returns the provider authorization URL together with the
// CSRF state token. The state is also pinned in a short-lived cookie
// so the callback can verify it.
func (h *Handler) LoginURL(c *gin.Context) {
	state, err := generateState(c, h.opts.SecureCookie)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to build login url",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":   h.provider.BuildLoginURL(state),
		"state": state,
	})
}

// Callback handles the browser's return from the provider: it trades
// the one-time code for identity, binds a session and sends the
// browser back to the frontend.
func (h *Handler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "No code")
		return
	}

	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid state",
		})
		return
	}

	result, accessToken, err := h.provider.Exchange(c.Request.Context(), code)
	if err != nil {
		logger.Error("wechat code exchange failed", map[string]any{
			"invalid_code": auth.IsInvalidCode(err),
			"error":        err.Error(),
		})
		c.String(http.StatusInternalServerError, "WeChat login error")
		return
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	now := time.Now()
	expiresAt := now.Add(h.opts.SessionTTL)

	sess := session.Session{
		SessionID:   sessionID,
		Profile:     result.Profile,
		AccessToken: accessToken,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	if err := h.sessionStore.Create(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist session",
		})
		return
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, h.cookieOptions())

	logger.Info("wechat login", map[string]any{
		"user_id":          result.Profile.UserID,
		"profile_complete": result.Complete,
	})

	c.Redirect(http.StatusFound, h.frontendRedirectURL(result.Profile))
}

func (h *Handler) frontendRedirectURL(p auth.UserProfile) string {
	query := url.Values{}
	query.Set("userId", p.UserID)
	query.Set("name", p.Name)
	return strings.TrimRight(h.opts.FrontendOrigin, "/") + "/?" + query.Encode()
}

type testLoginRequest struct {
	UserID string `json:"userId"`
}

// TestLogin is the bypass path used by frontend development. It is
// gated behind configuration and must stay off in production.
func (h *Handler) TestLogin(c *gin.Context) {
	if !h.opts.EnableTestLogin {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var req testLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	profile := auth.UserProfile{
		UserID:     userID,
		Name:       userID,
		IsTestUser: true,
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	now := time.Now()
	expiresAt := now.Add(h.opts.SessionTTL)

	if err := h.sessionStore.Create(c.Request.Context(), session.Session{
		SessionID: sessionID,
		Profile:   profile,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist session"})
		return
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, h.cookieOptions())

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    profile,
		"message": "test login successful",
	})
}

// Me reports the profile bound to the caller's session.
func (h *Handler) Me(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":      "Not logged in",
			"isLoggedIn": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       sess.Profile,
		"isLoggedIn": true,
	})
}

// Logout destroys the caller's session. The store delete happens
// first; the cookie is cleared only once the stored session is gone,
// so a store failure leaves the old session fully intact.
func (h *Handler) Logout(c *gin.Context) {
	cookie, err := c.Request.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		if err := h.sessionStore.Delete(c.Request.Context(), cookie.Value); err != nil {
			logger.Error("failed to destroy session", map[string]any{
				"error": err.Error(),
			})
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to destroy session",
			})
			return
		}
	}

	session.ClearCookie(c.Writer, h.cookieOptions())

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
