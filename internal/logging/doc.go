// Package logging provides structured file-based logging for kbsearch.
//
// Logs are written as JSON lines to ~/.kbsearch/logs/kbsearch.log with
// size-based rotation, optionally mirrored to stderr. The CLI surface
// stays on stdout; diagnostics go through slog.
package logging
