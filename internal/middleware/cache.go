package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PublicCache marks a GET response as shareable for maxAge. It replaces
// the no-store default, so only attach it to routes without patient data.
func PublicCache(maxAge time.Duration) gin.HandlerFunc {
	directive := fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Header("Cache-Control", directive)
			c.Header("Vary", "Accept")
		}
		c.Next()
	}
}
