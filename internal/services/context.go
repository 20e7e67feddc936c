package services

import "context"

// Trace is the request metadata a subtitle job carries through its stages.
type Trace struct {
	RequestID string
	Stage     string
	Target    string
}

type traceKey struct{}

// TraceFrom returns the trace attached to ctx; the zero Trace when absent.
func TraceFrom(ctx context.Context) Trace {
	if ctx == nil {
		return Trace{}
	}
	t, _ := ctx.Value(traceKey{}).(Trace)
	return t
}

func withTrace(ctx context.Context, set func(*Trace)) context.Context {
	t := TraceFrom(ctx)
	set(&t)
	return context.WithValue(ctx, traceKey{}, t)
}

// WithRequestID tags ctx with the correlation id assigned at the HTTP edge.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withTrace(ctx, func(t *Trace) { t.RequestID = id })
}

// WithStage records the pipeline stage currently running.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return withTrace(ctx, func(t *Trace) { t.Stage = stage })
}

// WithTarget records the validated target language of the job.
func WithTarget(ctx context.Context, lang string) context.Context {
	if lang == "" {
		return ctx
	}
	return withTrace(ctx, func(t *Trace) { t.Target = lang })
}
