// Package logging assembles structured slog loggers and formatting helpers used
// across plaques2gallery.
//
// It owns the console and JSON handlers, the rotating log file sink, and the
// context helpers that tag log lines with run, batch, plaque and stage
// identifiers. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
