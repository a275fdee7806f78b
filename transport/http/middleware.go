package http

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const privilegedKey = "privileged"

// PrivilegedMiddleware marks requests carrying a valid bearer token as
// privileged senders. Unauthenticated requests pass through unmarked; the
// handler then requires a real Origin header instead.
func PrivilegedMiddleware(tokens *PrivilegedTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			if _, err := tokens.Verify(strings.TrimPrefix(auth, "Bearer ")); err == nil {
				c.Set(privilegedKey, true)
			}
		}
		c.Next()
	}
}
