// Package observability provides logging and metrics.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

type contextKey string

const (
	// CorrelationIDKey carries a per-interaction correlation id.
	CorrelationIDKey contextKey = "correlation_id"
	// InteractionKey carries the command or button name being handled.
	InteractionKey contextKey = "interaction"
)

// ctxHandler is a slog.Handler that adds context values to the log record.
type ctxHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing it to the underlying handler.
func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if cid, ok := ctx.Value(CorrelationIDKey).(string); ok {
		r.AddAttrs(slog.String("correlation_id", cid))
	}
	if name, ok := ctx.Value(InteractionKey).(string); ok {
		r.AddAttrs(slog.String("interaction", name))
	}
	return h.Handler.Handle(ctx, r)
}

// InitLogging installs the default structured logger. JSON output in
// production, text otherwise.
func InitLogging(env string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(&ctxHandler{handler}))
}

// NewInteractionContext tags ctx with the interaction name and a fresh
// correlation id so every log line in a handler chain can be tied together.
func NewInteractionContext(ctx context.Context, name string) context.Context {
	ctx = context.WithValue(ctx, InteractionKey, name)
	return context.WithValue(ctx, CorrelationIDKey, uuid.NewString())
}
