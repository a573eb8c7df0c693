package server

import (
	"time"

	"github.com/zyadwael2009/gym/internal/auth"
	"github.com/zyadwael2009/gym/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLoggingMiddleware logs every request, tagged with the actor
// the auth middleware resolved so door and money operations can be
// traced back to a staff member.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method

		if raw != "" {
			path = path + "?" + raw
		}

		fields := []interface{}{
			"method", method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", clientIP,
			"user_agent", c.Request.UserAgent(),
		}
		if actor, ok := auth.GetActor(c); ok {
			fields = append(fields, "actor_kind", string(actor.Kind), "actor_id", actor.ID)
		}

		logger.Info("HTTP request", fields...)
	}
}
