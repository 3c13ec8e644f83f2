package trace

import "context"

type ctxKey struct{}

// FromContext extracts the Tracer from context.
// If not found, returns Nop tracer.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches a Tracer to context.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

// scope of the innermost open span; spans started from ctx become its children.
type current struct {
	spanID  uint64
	session string
}

type currentKey struct{}

func currentOf(ctx context.Context) current {
	if ctx == nil {
		return current{}
	}
	c, _ := ctx.Value(currentKey{}).(current)
	return c
}

// WithSession tags every span and point started from ctx with session.
func WithSession(ctx context.Context, session string) context.Context {
	c := currentOf(ctx)
	c.session = session
	return context.WithValue(ctx, currentKey{}, c)
}

// SpanID returns the id of the innermost span of ctx, 0 outside any span.
func SpanID(ctx context.Context) uint64 {
	return currentOf(ctx).spanID
}
