package audit

import (
	"context"
	"errors"
	"log/slog"
)

// ErrQueryUnsupported is returned by sinks that cannot retrieve past events.
var ErrQueryUnsupported = errors.New("audit sink does not support queries: configure a database store")

// SlogLogger writes audit events to a structured logger. It is the
// fallback sink when audit logging is enabled without a database.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates an audit logger backed by the given slog logger.
// If logger is nil, slog.Default() is used.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// Log writes the event as a structured log record.
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	attrs := []any{
		"audit_id", event.ID,
		"tool", event.ToolName,
		"success", event.Success,
		"duration_ms", event.DurationMS,
	}
	if event.ToolkitKind != "" {
		attrs = append(attrs, "toolkit_kind", event.ToolkitKind, "toolkit_name", event.ToolkitName)
	}
	if event.SessionID != "" {
		attrs = append(attrs, "session_id", event.SessionID)
	}
	if event.Intent != "" {
		attrs = append(attrs, "intent", event.Intent)
	}
	if event.SQL != "" {
		attrs = append(attrs, "sql", event.SQL)
	}
	if event.RowCount > 0 {
		attrs = append(attrs, "row_count", event.RowCount)
	}
	if event.ErrorMessage != "" {
		attrs = append(attrs, "error", event.ErrorMessage)
	}

	l.logger.InfoContext(ctx, "tool call", attrs...)
	return nil
}

// Query is not supported by the slog sink.
func (*SlogLogger) Query(_ context.Context, _ QueryFilter) ([]Event, error) {
	return nil, ErrQueryUnsupported
}

// Close does nothing.
func (*SlogLogger) Close() error {
	return nil
}

// NoopLogger discards all audit events.
type NoopLogger struct{}

// Log does nothing.
func (*NoopLogger) Log(_ context.Context, _ Event) error {
	return nil
}

// Query returns no events.
func (*NoopLogger) Query(_ context.Context, _ QueryFilter) ([]Event, error) {
	return nil, nil
}

// Close does nothing.
func (*NoopLogger) Close() error {
	return nil
}

// Verify interface compliance.
var (
	_ Logger = (*SlogLogger)(nil)
	_ Logger = (*NoopLogger)(nil)
)
