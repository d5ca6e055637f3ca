// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maloune/storefront/internal/pkg/auth"
)

const OperatorKey = "operator"

// AdminAuth requires a bearer token with admin access
func AdminAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAdminToken(tokenString)
		if err != nil {
			status := http.StatusUnauthorized
			message := "Invalid or expired token"
			if errors.Is(err, auth.ErrNotAdmin) {
				status = http.StatusForbidden
				message = "Admin access required"
			}
			c.JSON(status, gin.H{
				"error": message,
			})
			c.Abort()
			return
		}

		c.Set(OperatorKey, claims.Operator)
		c.Next()
	}
}
