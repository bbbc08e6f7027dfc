// Package logging provides structured logging using uber/zap.
//
// Production mode writes JSON for machine parsing; development mode writes
// colored console output. Script output captured during an invocation is
// mirrored through a child logger named "script" at debug level.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Invocation finished", zap.String("invocation_id", id))
package logging
