// Package logger builds the process-wide *slog.Logger: human-readable text
// outside production, JSON in production, with the environment and application
// name attached to every record.
package logger
