// Package logging provides structured logging utilities for the felix tools.
//
// It centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package:
// shared attribute keys, attribute constructors, and a constructor for the
// process-wide logger writing to stderr.
//
// Create a logger with standard attributes:
//
//	logger := logging.WithService(logging.New(slog.LevelInfo, false), "clickup")
//	logger.Info("search complete", logging.Operation("tasks.search"))
package logging
