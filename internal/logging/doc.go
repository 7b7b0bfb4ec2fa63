// Package logging assembles structured slog loggers and formatting helpers used
// across clipcontext.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with session IDs and stage names automatically. Console output goes to
// stderr and is colored only when stderr is a terminal. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
