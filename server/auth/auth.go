// Package auth implements the single static bearer API key check used by
// the REST endpoints. There is no multi-tenant authorization: exactly one
// credential to check, and it is never hashed.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerAuth returns a gin middleware requiring `Authorization: Bearer
// <apiKey>`; a missing or mismatched header aborts the request with 401.
func BearerAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		got := strings.TrimPrefix(header, prefix)
		if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
