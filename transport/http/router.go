package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dtp-labs/trustgate/service"
)

// RouterConfig carries the transport-level settings.
type RouterConfig struct {
	Production     bool
	AllowedOrigins []string
}

// SetupRouter builds the gin engine with all auth routes mounted under
// /api/auth.
func SetupRouter(authService *service.AuthService, cfg RouterConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	handlers := NewAuthHandlers(authService, cfg.Production)

	auth := router.Group("/api/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.GET("/challenge/:id/status", handlers.ChallengeStatus)
		auth.GET("/status/session/:sessionId", handlers.SessionStatus)
		auth.POST("/verify", handlers.Verify)
		auth.POST("/verify-token", handlers.VerifyToken)
		auth.POST("/login", handlers.Login)

		auth.GET("/zkp-challenge", handlers.ZkChallenge)
		auth.POST("/verify-zkp", handlers.VerifyZkp)
		auth.POST("/verify-anonymous-token", handlers.VerifyAnonymousToken)
	}

	protected := router.Group("/api/auth")
	protected.Use(AuthMiddleware(authService))
	{
		protected.GET("/session-status", handlers.SessionStatusAuthenticated)
		protected.POST("/verify-zkp-session", handlers.VerifyZkpSession)
	}

	return router
}
