// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production). Debug level switches to the development config,
// which also turns on the relation package's per-child mutation logs.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json or console
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "json"})
//	log.Info("Article saved", zap.Int("id", id))
//
//	// Scoped loggers for components:
//	b, _ := relation.New(descs, relation.WithLogger(logger.Named(log, "relation")))
package logger
