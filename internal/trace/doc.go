// Package trace records what the checker is doing: driver steps, passes and
// per-module work, as nested spans.
//
// # Usage
//
//	quill check --trace=- --trace-level=phase
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes every event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events in memory, dumped on failure
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: ring buffer only, dumped when checking fails
//   - LevelPhase: driver and pass boundaries
//   - LevelDetail: per-module events
//   - LevelDebug: everything
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx = trace.WithSession(ctx, sessionID)
//	ctx, span := trace.Start(ctx, trace.ScopePass, "sema.types")
//	defer span.End("")
//
// Spans started from the returned ctx nest under span and carry the session.
package trace
