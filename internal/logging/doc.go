// Package logging provides context-aware structured logging on top of zap.
//
// Logs are written to stderr so that stdout stays reserved for the
// line-delimited protocol spoken by the stdio transport. An optional
// OpenTelemetry core mirrors records to an OTEL log provider.
//
// Every method takes a context and prepends correlation fields found in it:
//
//   - trace_id / span_id from the active OpenTelemetry span
//   - session.id set with WithSessionID
//   - request.id set with WithRequestID
//
// The level is held in a zap.AtomicLevel so it can be changed at runtime
// (see Logger.SetLevel), which the config watcher uses on reload.
//
// Tests use NewTestLogger, which records entries in memory:
//
//	logger := logging.NewTestLogger()
//	svc := brain.New(..., brain.WithLogger(logger.Logger))
//	logger.AssertLogged(t, zapcore.InfoLevel, "brain initialized")
package logging
