// Package logger wraps slog with the handful of structured event helpers the
// application logs consistently.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger embeds slog.Logger; call the slog methods directly for ad-hoc
// logging and the named helpers for recurring events.
type Logger struct {
	*slog.Logger
}

// New builds a logger for the environment: human-readable text at debug
// level in development, JSON at info level everywhere else.
func New(env string) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// HTTPRequest logs one served request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// AuthEvent logs sign-in/sign-out activity. Failures carry the reason and
// log at warn so auth abuse stands out in aggregate.
func (l *Logger) AuthEvent(event, email string, success bool, reason string) {
	if success {
		l.Info("auth_event",
			slog.String("event", event),
			slog.String("email", email),
			slog.Bool("success", true),
		)
		return
	}
	l.Warn("auth_event",
		slog.String("event", event),
		slog.String("email", email),
		slog.Bool("success", false),
		slog.String("reason", reason),
	)
}

// ConversionSkipped logs a lead conversion that was deduplicated or failed.
// The owning status transition has already committed when this fires.
func (l *Logger) ConversionSkipped(leadID, reason string) {
	l.Warn("lead_conversion_skipped",
		slog.String("lead_id", leadID),
		slog.String("reason", reason),
	)
}

// RateLimitExceeded logs a throttled request.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
