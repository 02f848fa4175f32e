// Package logger builds the slog loggers injected into the newsletter core.
//
// The core never touches the process-wide default logger; every component
// takes a *slog.Logger (or falls back to a no-op one), so the observability
// sink is always an explicit dependency.
//
//   - [New] returns a JSON logger writing to stdout.
//   - [NewNope] returns a logger that discards everything, used as the
//     default when the caller does not care about logs.
//   - [NewWithSentry] additionally forwards warnings and errors to Sentry,
//     degrading gracefully to stdout-only when no DSN is configured.
package logger
