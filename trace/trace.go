package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Header carries the trace id between services.
const Header = "X-Trace-ID"

type ctxKey struct{}

// WithTraceID attaches a trace id to ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// TraceIDFromContext reads the trace id from ctx.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v := ctx.Value(ctxKey{})
	s, ok := v.(string)
	return s, ok && s != ""
}

// NewID returns a fresh trace id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Ensure returns ctx unchanged when it already carries a trace id, otherwise
// a child context with a new one.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := TraceIDFromContext(ctx); ok {
		return ctx, id
	}
	id := NewID()
	return WithTraceID(ctx, id), id
}
