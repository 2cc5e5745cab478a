package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"devicelab/internal/domain"
	"devicelab/internal/pkg/response"
)

// RequireRole ensures the authenticated session carries the given role.
func RequireRole(required domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "no session")
			c.Abort()
			return
		}

		if sess.Role != required {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// AdminOnly guards the approver surface.
func AdminOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}
