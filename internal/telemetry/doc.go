// Package telemetry wires OpenTelemetry tracing and metrics for nyx.
//
// Spans cover the perception, reasoning and learning stages of every
// processed message; HTTP request metrics come from the control surface.
// Data is exported over OTLP (gRPC or HTTP/protobuf) to a collector.
//
// Telemetry failures never stop the assistant. If an exporter cannot be
// built the instance reports itself degraded and hands out no-op providers.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	b := brain.New(table, policy, brain.WithTracerProvider(tt.TracerProvider()))
//	...
//	tt.AssertSpanExists(t, "brain.process")
package telemetry
