package middleware

import (
	"bytes"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"whatsapp-api/internal/logx"
	"whatsapp-api/internal/tenant"
)

// LoggerConfig contains logger middleware configuration
type LoggerConfig struct {
	SkipPaths       []string
	SkipMethods     []string
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
}

// RequestLogger logs HTTP requests through the shared structured logger.
func RequestLogger(log *logx.Logger, debug bool) gin.HandlerFunc {
	return RequestLoggerWithConfig(log, LoggerConfig{
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/favicon.ico",
		},
		LogRequestBody:  debug,
		LogResponseBody: false,
		MaxBodySize:     4096,
	})
}

// RequestLoggerWithConfig builds a request logger middleware against a
// specific config, logging every entry through zerolog's structured event
// builder rather than formatted strings.
func RequestLoggerWithConfig(log *logx.Logger, cfg LoggerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}
		method := c.Request.Method
		for _, skipMethod := range cfg.SkipMethods {
			if method == skipMethod {
				c.Next()
				return
			}
		}

		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)

		var requestBody []byte
		if cfg.LogRequestBody && c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		if cfg.LogResponseBody {
			c.Writer = blw
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Zerolog().Info()
		if status >= 500 {
			event = log.Zerolog().Error()
		} else if status >= 400 {
			event = log.Zerolog().Warn()
		}

		event = event.
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", GetClientIP(c)).
			Str("user_agent", c.Request.UserAgent())

		if tc, ok := tenant.FromContext(c.Request.Context()); ok {
			event = event.Str("team_id", tc.TeamID).Str("user_id", tc.UserID)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		if cfg.LogRequestBody && len(requestBody) > 0 && len(requestBody) < cfg.MaxBodySize {
			event = event.Str("request_body", string(requestBody))
		}
		if cfg.LogResponseBody && blw.body.Len() > 0 && blw.body.Len() < cfg.MaxBodySize {
			event = event.Str("response_body", blw.body.String())
		}
		event.Msg("request")
	}
}

// bodyLogWriter is a custom response writer that captures the response body
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyLogWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

func generateRequestID() string {
	return uuid.NewString()
}

// ErrorLogger logs errors the handler chain attached to the gin context.
func ErrorLogger(log *logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		requestID, _ := c.Get("request_id")
		for _, err := range c.Errors {
			event := log.Zerolog().Error().
				Str("error", err.Error()).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method)
			if requestID != nil {
				event = event.Interface("request_id", requestID)
			}
			if tc, ok := tenant.FromContext(c.Request.Context()); ok {
				event = event.Str("team_id", tc.TeamID)
			}
			event.Msg("handler error")
		}
	}
}

// SlowRequestLogger logs requests that take longer than the given threshold.
func SlowRequestLogger(log *logx.Logger, threshold time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		if latency <= threshold {
			return
		}
		log.Zerolog().Warn().
			Str("type", "slow_request").
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Dur("latency", latency).
			Dur("threshold", threshold).
			Int("status", c.Writer.Status()).
			Msg("slow request")
	}
}
