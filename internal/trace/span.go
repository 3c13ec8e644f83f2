package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var counters struct {
	seq  atomic.Uint64
	span atomic.Uint64
}

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 { return counters.seq.Add(1) }

func nextSpanID() uint64 { return counters.span.Add(1) }

// Span is an open span; End closes it. A span of a disabled tracer or of a
// filtered scope is inert and has ID 0.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	session string
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

// Start opens a span under the innermost span of ctx, using the tracer of
// ctx. The returned context carries the new span.
//
//	ctx, span := trace.Start(ctx, trace.ScopePass, "sema.types")
//	defer span.End("")
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	t := FromContext(ctx)
	if !t.Enabled() || !t.Level().Records(scope) {
		return ctx, &Span{tracer: Nop}
	}
	cur := currentOf(ctx)
	s := &Span{
		tracer:  t,
		id:      nextSpanID(),
		parent:  cur.spanID,
		session: cur.session,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	t.Emit(&Event{
		Time:     s.started,
		Seq:      NextSeq(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Session:  s.session,
		Name:     name,
	})
	if ctx == nil {
		ctx = context.Background()
	}
	cur.spanID = s.id
	return context.WithValue(ctx, currentKey{}, cur), s
}

// End emits the end event with detail and the collected extras.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return 0
	}
	dur := time.Since(s.started)
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Session:  s.session,
		Name:     s.name,
		Detail:   detail,
		Extra:    s.extra,
	})
	return dur
}

// WithExtra adds a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Mark emits an instant event under the innermost span of ctx.
func Mark(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !t.Enabled() || !t.Level().Records(scope) {
		return
	}
	cur := currentOf(ctx)
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: cur.spanID,
		Session:  cur.session,
		Name:     name,
		Detail:   detail,
	})
}
