// Package diag defines the diagnostic model shared by the loader, the semantic
// checker and the driver.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error (severity.go).
//   - Code – compact numeric identifier with a stable string form (codes.go).
//   - Message – short, actionable text.
//   - Primary span – the source.Span the finding points at.
//   - Notes – optional secondary spans/messages, e.g. "declared here" or the
//     list of available fields for an unknown member.
//
// # Emitting diagnostics
//
// Producers report through a Reporter so that emission stays decoupled from
// storage. ReportError/ReportWarning return a ReportBuilder; chain WithNote and
// call Emit. BagReporter collects everything into a Bag which supports sorting,
// deduplication and error queries.
//
// User-facing problems are always diagnostics. Broken internal invariants are
// panics and never pass through this package.
package diag
