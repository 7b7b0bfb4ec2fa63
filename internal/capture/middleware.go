package capture

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clipcontext/internal/logging"
	"clipcontext/internal/services"
)

// CORS admits the configured extra origins. Same-origin requests from the
// served capture page always pass.
func CORS(origins []string) gin.HandlerFunc {
	allowed := slices.Clone(origins)
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return slices.Contains(allowed, origin) },
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type", "X-Requested-With"},
		MaxAge:          10 * time.Minute,
	})
}

// RequestLogger tags each request with a correlation id and logs one line
// per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), requestID))
		c.Header("X-Request-ID", requestID)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		attrs := []logging.Attr{
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(start)),
			logging.String("client_ip", c.ClientIP()),
		}
		reqLogger := logging.WithContext(c.Request.Context(), logger)
		if path == "/api/health" || path == "/api/session" {
			reqLogger.Debug("http request", logging.Args(attrs...)...)
			return
		}
		reqLogger.Info("http request", logging.Args(attrs...)...)
	}
}

// MaxBodySize caps the request body.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
