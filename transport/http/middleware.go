package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dtp-labs/trustgate/core"
	"github.com/dtp-labs/trustgate/service"
)

const (
	contextKeySession = "session"
	contextKeyBearer  = "sessionToken"
)

// AuthMiddleware validates the bearer session token and stores the session
// and the raw token on the request context.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			respondError(c, http.StatusUnauthorized, "token_invalid", "Missing bearer token")
			c.Abort()
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		session, err := authService.VerifySessionToken(token)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, core.ErrTokenExpired) {
				message = "Token expired"
			}
			respondError(c, http.StatusUnauthorized, "token_invalid", message)
			c.Abort()
			return
		}

		c.Set(contextKeySession, session)
		c.Set(contextKeyBearer, token)
		c.Next()
	}
}

func sessionFromContext(c *gin.Context) *core.Session {
	v, ok := c.Get(contextKeySession)
	if !ok {
		return nil
	}
	session, _ := v.(*core.Session)
	return session
}

func bearerFromContext(c *gin.Context) string {
	return c.GetString(contextKeyBearer)
}
