package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"devicelab/internal/pkg/response"
	"devicelab/internal/session"
)

const sessionKey = "session"

// Authenticator resolves a bearer token to a live session.
type Authenticator interface {
	Authenticate(token string) (session.Session, error)
}

// Auth rejects requests without a resolvable session and stores the
// session on the context for handlers.
func Auth(gateway Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			c.Abort()
			return
		}

		sess, err := gateway.Authenticate(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// BearerToken extracts the token from the Authorization header, empty
// when absent or malformed.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// SessionFrom returns the session stored by Auth.
func SessionFrom(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := v.(session.Session)
	return sess, ok
}
