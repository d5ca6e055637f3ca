// internal/interfaces/http/middleware/cart_session.go
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CartSessionHeader = "X-Cart-Session"
	CartSessionCookie = "cart_session"
	CartSessionKey    = "cart_session"
)

// CartSession resolves the shopper's cart session from the header or cookie,
// minting a new one when neither carries a valid id
func CartSession(ttl time.Duration, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CartSessionHeader)
		if id == "" {
			id, _ = c.Cookie(CartSessionCookie)
		}

		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(CartSessionKey, id)
		c.Header(CartSessionHeader, id)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CartSessionCookie, id, int(ttl.Seconds()), "/", "", secure, true)

		c.Next()
	}
}

// CartSessionFromContext returns the cart session resolved by CartSession
func CartSessionFromContext(c *gin.Context) string {
	return c.GetString(CartSessionKey)
}
