package utils

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"

	contextRequestID = "request_id"
	contextLogger    = "logger"
)

// Logger is the logging surface handlers and middleware depend on.
// Services take a *slog.Logger directly; see ToSlogLogger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger

	// LogRequest writes one access log line, leveled by status code.
	LogRequest(method, path string, statusCode int, duration string, args ...any)
	LogError(err error, msg string, args ...any)
}

type slogLogger struct {
	logger *slog.Logger
}

// NewLogger writes text at debug level in development and JSON at info
// level everywhere else.
func NewLogger(environment string, w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	if environment == "development" {
		return &slogLogger{logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &slogLogger{logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

func (l *slogLogger) LogRequest(method, path string, statusCode int, duration string, args ...any) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	attrs := append([]any{
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration", duration,
	}, args...)
	l.logger.Log(context.Background(), level, "HTTP Request", attrs...)
}

func (l *slogLogger) LogError(err error, msg string, args ...any) {
	l.logger.Error(msg, append([]any{"error", err}, args...)...)
}

// ToSlogLogger unwraps a Logger for the service layer. Foreign
// implementations get slog.Default.
func ToSlogLogger(logger Logger) *slog.Logger {
	if l, ok := logger.(*slogLogger); ok {
		return l.logger
	}
	return slog.Default()
}

// ===== GIN MIDDLEWARE =====

// LoggerMiddleware replaces gin's access log with LogRequest.
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		args := []any{
			"client_ip", param.ClientIP,
			"user_agent", param.Request.UserAgent(),
		}
		if id, ok := param.Keys[contextRequestID].(string); ok {
			args = append(args, "request_id", id)
		}
		if param.ErrorMessage != "" {
			args = append(args, "gin_errors", param.ErrorMessage)
		}
		logger.LogRequest(param.Method, param.Path, param.StatusCode, param.Latency.String(), args...)
		return ""
	})
}

// RequestID echoes the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// ContextLogger stores a request-scoped logger for FromContext.
func ContextLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextLogger, logger.With(
			"request_id", c.GetString(contextRequestID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		))
		c.Next()
	}
}

func FromContext(c *gin.Context) Logger {
	if value, ok := c.Get(contextLogger); ok {
		if logger, ok := value.(Logger); ok {
			return logger
		}
	}
	return NewLogger("production", os.Stdout)
}
