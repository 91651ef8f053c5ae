// Package logger builds slog loggers and provides attribute helpers for the
// certificate lifecycle.
//
// # Basic Usage
//
//	log := logger.New(
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithJSONFormatter(),
//		logger.WithAttr(slog.String("service", "acmekit")),
//	)
//
//	log.Info("certificate issued",
//		logger.Certificate(cert.Name()),
//		logger.Domains(cert.Domains()),
//		logger.Elapsed(start),
//	)
//
// # Attribute Helpers
//
// Helpers return an empty slog.Attr for zero values. slog drops empty
// attributes, so optional values need no guard:
//
//	log.Warn("challenge cleanup failed",
//		logger.Authenticator(auth.Name()),
//		logger.Error(err), // no-op when err is nil
//	)
//
// Errors groups several errors under one key with index-based subkeys.
package logger
