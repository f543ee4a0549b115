// Package diag defines the diagnostic model shared by the assembler, linker
// and fixer stages.
//
// # Data model
//
// Diagnostic is an immutable record produced by an engine:
//
//   - Severity – ordered enum (Trace, Info, Warning, Error, Fatal). Engines
//     only emit Info..Error; Trace is used for verbose log lines and Fatal for
//     failures of the toolchain itself.
//   - Code – compact numeric identifier with a stable string form (codes.go).
//   - Message – short, actionable text.
//   - Pos – path/line/column supplied by the engine; zero when unknown.
//
// # Emitting diagnostics
//
// Engines report through a Reporter so emission is decoupled from storage.
// BagReporter collects into a Bag, which supports sorting, counting and
// merging. DedupReporter drops exact repeats.
//
// Package diag does no formatting beyond Diagnostic.String and no IO;
// rendering, routing and summaries live in internal/report.
package diag
