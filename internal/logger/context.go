package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying log.
func NewContext(ctx context.Context, log logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored in ctx, or fallback.
func FromContext(ctx context.Context, fallback logrus.FieldLogger) logrus.FieldLogger {
	if log, ok := ctx.Value(ctxKey{}).(logrus.FieldLogger); ok && log != nil {
		return log
	}
	return fallback
}
