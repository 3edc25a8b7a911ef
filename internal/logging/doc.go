// Package logging builds the application's log/slog loggers.
package logging
