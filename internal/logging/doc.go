// Package logging configures slog output for the daemon and CLI: a console
// handler for interactive use, a JSON handler for files, and helpers that
// carry run/stage identifiers from context into every record.
package logging
