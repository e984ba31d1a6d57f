package app

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jyfmidi/shuxinyuan-express/internal/auth/handler"
	"github.com/jyfmidi/shuxinyuan-express/internal/auth/provider/wecom"
	"github.com/jyfmidi/shuxinyuan-express/internal/config"
	"github.com/jyfmidi/shuxinyuan-express/internal/middleware"
	"github.com/jyfmidi/shuxinyuan-express/internal/session"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	var sessionStore session.Store
	if infra.Redis != nil {
		sessionStore = session.NewRedisStore(infra.Redis.Client)
	} else {
		sessionStore = session.NewMemoryStore()
	}

	wecomProvider, err := wecom.New(
		cfg.WeComCorpID,
		cfg.WeComAgentID,
		cfg.WeComAgentSecret,
		cfg.RedirectURI(),
		cfg.WeComAPIBase,
		cfg.WeComAuthorizeBase,
		cfg.HTTPTimeout,
	)
	if err != nil {
		return nil, nil, err
	}

	authHandler := handler.NewHandler(
		wecomProvider,
		sessionStore,
		handler.Options{
			FrontendOrigin:  cfg.FrontendOrigin,
			SessionTTL:      cfg.SessionTTL,
			SecureCookie:    cfg.SecureCookie,
			EnableTestLogin: cfg.EnableTestLogin,
		},
	)

	authMiddleware := middleware.NewAuthMiddleware(sessionStore)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	// Credentialed cross-origin requests are allowed for exactly the
	// configured frontend origin.
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// ----------------------------
	// Routes
	// ----------------------------

	authHandler.RegisterRoutes(router, cfg.APIBasePath, authMiddleware)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		if infra.Redis != nil {
			return infra.Redis.Close()
		}
		return nil
	}, nil
}
