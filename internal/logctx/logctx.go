// Package logctx carries a query-scoped logger through a context, so
// pipeline components annotate their records with the query correlation
// id without threading a logger through every signature.
package logctx

import (
	"context"
	"log/slog"
)

type key struct{}

// With returns a context carrying the given logger.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, key{}, l)
}

// From returns the carried logger, the fallback, or slog.Default in
// that order.
func From(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(key{}).(*slog.Logger); ok {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
