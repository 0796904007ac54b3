package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LookupHeadersMiddleware marks lookup answers as uncacheable and
// readable from any origin.
func LookupHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Cache-Control", "no-cache")
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("room", c.Query("roomId")).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
