// Package logger provides structured logging for chunkscribe using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.WithComponent("merger")
//	log.Info("segment merged", logger.Fields(logger.FieldSegment, 2, logger.FieldChunks, 6))
package logger
