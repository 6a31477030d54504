package observability

import (
	"context"
	"log/slog"

	"github.com/geocoder89/inventoryhub/internal/actorctx"
	"go.opentelemetry.io/otel/trace"
)

// contextHandler decorates records with the ids carried by ctx: the active
// span and, once RequireAuth has run, the acting user.
type contextHandler struct {
	inner slog.Handler
}

func newContextHandler(inner slog.Handler) slog.Handler {
	return contextHandler{inner: inner}
}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if userID, ok := actorctx.UserIDFrom(ctx); ok {
		r.AddAttrs(slog.String("actor_id", userID))
	}

	return h.inner.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{inner: h.inner.WithGroup(name)}
}
