package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders sets the headers a JSON API needs; responses carry
// patient data and must never be cached or framed.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
