package observability

import (
	"context"
	"log/slog"
	"time"
)

// Span times one traced operation (builder invocation, flush, diagnostics).
type Span struct {
	ctx   context.Context
	name  string
	start time.Time
	attrs []slog.Attr
}

// StartSpan begins a span; End must be called exactly once.
func StartSpan(ctx context.Context, name string, attrs ...slog.Attr) *Span {
	DebugContext(ctx, "Span started", append([]slog.Attr{slog.String("span", name)}, attrs...)...)
	return &Span{ctx: ctx, name: name, start: time.Now(), attrs: attrs}
}

// End logs the span duration and error, returning the elapsed time.
func (s *Span) End(err error) time.Duration {
	d := time.Since(s.start)
	attrs := append([]slog.Attr{
		slog.String("span", s.name),
		slog.Int64("duration_ms", d.Milliseconds()),
	}, s.attrs...)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	DebugContext(s.ctx, "Span ended", attrs...)
	return d
}
