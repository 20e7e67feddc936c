package logging

import (
	"context"
	"log/slog"

	"multivox/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldTargetLanguage is the subtitle language a job is producing.
	FieldTargetLanguage = "target_language"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	trace := services.TraceFrom(ctx)
	fields := make([]slog.Attr, 0, 3)
	if trace.Stage != "" {
		fields = append(fields, slog.String(FieldStage, trace.Stage))
	}
	if trace.RequestID != "" {
		fields = append(fields, slog.String(FieldCorrelationID, trace.RequestID))
	}
	if trace.Target != "" {
		fields = append(fields, slog.String(FieldTargetLanguage, trace.Target))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		args = append(args, field)
	}
	return logger.With(args...)
}
