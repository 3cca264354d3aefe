package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/envpass/envpass-server/internal/logger"
)

// Logging logs one line per request with method, path, status and latency.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware instance.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// Handle returns the gin middleware function.
func (m *Logging) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		m.logger.Info("request handled",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
