// Package logging provides subsystem-tagged structured logging on top of
// log/slog.
//
// Call Init once at startup; until then messages go to slog's default logger.
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("Server", "listening on %s", addr)
//	logging.Error("Flow", err, "collective callback rejected")
//
// Audit records security-relevant flow outcomes at INFO with an [AUDIT]
// prefix so they can be filtered by log aggregation.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a configuration string to a LogLevel. Unknown values map to LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// Init installs a text handler writing to output at the given level.
// It also becomes slog's default logger.
func Init(level LogLevel, output io.Writer) {
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: level.SlogLevel()})
	logger := slog.New(handler)

	mu.Lock()
	defaultLogger = logger
	mu.Unlock()

	slog.SetDefault(logger)
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args []any, attrs ...slog.Attr) {
	l := logger()
	ctx := context.Background()
	if !l.Enabled(ctx, level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	all := make([]slog.Attr, 0, len(attrs)+2)
	all = append(all, slog.String("subsystem", subsystem))
	if err != nil {
		all = append(all, slog.String("error", err.Error()))
	}
	all = append(all, attrs...)

	l.LogAttrs(ctx, level.SlogLevel(), msg, all...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...any) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...any) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...any) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...any) {
	logInternal(LevelError, subsystem, err, messageFmt, args)
}

// Request logs a completed HTTP request.
func Request(requestID, method, path string, status int, duration string) {
	logInternal(LevelInfo, "HTTP", nil, "%s %s", []any{method, path},
		slog.String("request_id", requestID),
		slog.Int("status", status),
		slog.String("duration", duration),
	)
}

// AuditEvent describes a security-relevant outcome of a flow hop.
type AuditEvent struct {
	Action    string
	Outcome   string
	RequestID string
	// Nonce is truncated before logging.
	Nonce  string
	Target string
	Error  string
}

// Audit logs an audit event at INFO level.
func Audit(ev AuditEvent) {
	attrs := []slog.Attr{
		slog.String("action", ev.Action),
		slog.String("outcome", ev.Outcome),
	}
	if ev.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", ev.RequestID))
	}
	if ev.Nonce != "" {
		attrs = append(attrs, slog.String("nonce", Truncate(ev.Nonce)))
	}
	if ev.Target != "" {
		attrs = append(attrs, slog.String("target", ev.Target))
	}
	if ev.Error != "" {
		attrs = append(attrs, slog.String("error", ev.Error))
	}
	logInternal(LevelInfo, "Audit", nil, "[AUDIT] %s", []any{ev.Action}, attrs...)
}

// Truncate shortens an identifier so it can correlate log lines without
// revealing the full value.
func Truncate(s string) string {
	const keep = 6
	if len(s) <= keep {
		return s
	}
	return s[:keep] + "..."
}
