// Package logging configures structured slog loggers for folio. Console
// output uses a compact key=value handler, JSON output the stock slog
// handler with normalized keys. Loggers write to stdout and, when a log
// directory is configured, to folio.log inside it.
package logging
