package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// Options controls handler construction
type Options struct {
	Level  string
	Format string // "text" or "json"; empty picks text in gin debug mode
	Output io.Writer
}

// New creates a new logger instance from LOG_LEVEL and LOG_FORMAT
func New() *Logger {
	return NewWithOptions(Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
}

// NewWithOptions creates a logger with explicit settings
func NewWithOptions(o Options) *Logger {
	level := getLogLevel(o.Level)
	out := o.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(o.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		if gin.Mode() == gin.DebugMode {
			// Use text handler for development (more readable)
			handler = slog.NewTextHandler(out, opts)
		} else {
			handler = slog.NewJSONHandler(out, opts)
		}
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything, for tests
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithSession adds the checkout session ID to logger context
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("session_id", sessionID)),
	}
}

// WithComponent tags every record with the emitting component
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("component", name)),
	}
}

// WithError adds error to logger context. A nil error adds nothing.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogBackendCall logs an outbound reservation backend call
func (l *Logger) LogBackendCall(ctx context.Context, op string, status int, duration time.Duration, err error) {
	if err != nil {
		l.Logger.WarnContext(ctx,
			"Backend Call Failed",
			slog.String("op", op),
			slog.Int("status", status),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Logger.DebugContext(ctx,
		"Backend Call",
		slog.String("op", op),
		slog.Int("status", status),
		slog.Duration("duration", duration),
	)
}

// Checkout logging methods

// LogSeatsReserved logs a successful hold of the full seat set
func (l *Logger) LogSeatsReserved(ctx context.Context, sessionID string, seatIDs []int64, expiresAt time.Time) {
	l.Logger.InfoContext(ctx,
		"Seats Reserved",
		slog.String("session_id", sessionID),
		slog.Any("seat_ids", seatIDs),
		slog.Time("expires_at", expiresAt),
	)
}

// LogSeatsReleased logs a release request
func (l *Logger) LogSeatsReleased(ctx context.Context, sessionID string, seatIDs []int64, reason string) {
	l.Logger.InfoContext(ctx,
		"Seats Released",
		slog.String("session_id", sessionID),
		slog.Any("seat_ids", seatIDs),
		slog.String("reason", reason),
	)
}

// LogHoldExpired logs when the reservation window runs out
func (l *Logger) LogHoldExpired(ctx context.Context, sessionID string, seatCount int) {
	l.Logger.WarnContext(ctx,
		"Seat Hold Expired",
		slog.String("session_id", sessionID),
		slog.Int("seat_count", seatCount),
	)
}

// LogBookingCreated logs when a booking is created
func (l *Logger) LogBookingCreated(ctx context.Context, bookingCode, sessionID string, finalAmount int64) {
	l.Logger.InfoContext(ctx,
		"Booking Created",
		slog.String("booking_code", bookingCode),
		slog.String("session_id", sessionID),
		slog.Int64("final_amount", finalAmount),
	)
}

// LogBookingCancelled logs when a booking is cancelled
func (l *Logger) LogBookingCancelled(ctx context.Context, bookingCode, sessionID string) {
	l.Logger.InfoContext(ctx,
		"Booking Cancelled",
		slog.String("booking_code", bookingCode),
		slog.String("session_id", sessionID),
	)
}

// LogPaymentStatus logs an observed payment status
func (l *Logger) LogPaymentStatus(ctx context.Context, transactionID, status string) {
	l.Logger.InfoContext(ctx,
		"Payment Status",
		slog.String("transaction_id", transactionID),
		slog.String("status", status),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// WarnWithContext logs a warning with context
func (l *Logger) WarnWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.WarnContext(ctx, msg, args...)
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.DebugContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
