// Package logging assembles structured slog loggers and formatting helpers
// used across pegasus.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standard field keys (component, event_type, error_hint, impact) and a no-op
// logger for tests and wiring code that cannot fail. Context helpers tag log
// lines with the watch session id and the operation being run.
package logging
