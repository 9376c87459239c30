package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-quiz/internal/response"
)

const (
	// HeaderSessionToken carries the quiz session token on session routes.
	HeaderSessionToken = "X-Session-Token"
	// ContextKeySessionToken is the Gin context key for the session token.
	ContextKeySessionToken = "session_token"
)

// RequireSessionToken rejects requests without a session token. The header is
// preferred; the session_token query param is accepted for WebSocket upgrades.
func RequireSessionToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(HeaderSessionToken))
		if token == "" {
			token = strings.TrimSpace(c.Query("session_token"))
		}
		if token == "" {
			response.AbortFail(c, http.StatusBadRequest, response.ErrSessionTokenNeeded)
			return
		}

		c.Set(ContextKeySessionToken, token)
		c.Next()
	}
}

// GetSessionToken returns the token stored by RequireSessionToken.
func GetSessionToken(c *gin.Context) string {
	return c.GetString(ContextKeySessionToken)
}
