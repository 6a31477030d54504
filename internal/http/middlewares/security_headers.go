package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP = "default-src 'none'"
	// the docs page loads Swagger UI from unpkg and bootstraps it inline
	docsCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")

		path := c.Request.URL.Path

		switch {
		case strings.HasPrefix(path, "/docs"):
			h.Set("Content-Security-Policy", docsCSP)
		case strings.HasPrefix(path, "/api/auth/"):
			// login responses carry access tokens
			h.Set("Content-Security-Policy", apiCSP)
			h.Set("Cache-Control", "no-store")
		default:
			h.Set("Content-Security-Policy", apiCSP)
		}

		c.Next()
	}
}
