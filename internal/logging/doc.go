// Package logging provides structured logging for relguard commands.
//
// # Overview
//
// The package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (run.id, tag)
//   - Console or JSON output, on stderr by default
//
// # Usage
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx := logging.WithRunID(ctx, uuid.NewString())
//	ctx = logging.WithTag(ctx, "v0.2.0-rc.1")
//	logger.Info(ctx, "stage gate evaluated", zap.Bool("ready_to_publish", ready))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2026-03-14T09:26:53Z",
//	  "level": "info",
//	  "msg": "stage gate evaluated",
//	  "run.id": "0b852f6a-4f0e-4d19-9d0c-5a2f0f0b852f",
//	  "tag": "v0.2.0-rc.1",
//	  "ready_to_publish": true
//	}
//
// Logs stay on stderr so stdout and the report files carry only report
// content.
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
