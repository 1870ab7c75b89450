// Package telemetry wires OpenTelemetry tracing for dagocrew.
//
// When tracing is enabled, spans are exported over OTLP/gRPC and the SDK
// tracer provider is registered globally. The engine emits:
//   - crew.kickoff: one span per run
//   - crew.plan: the planning phase
//   - task.execute: one span per task
//
// When tracing is disabled, no exporter is created and the global provider
// stays a noop.
package telemetry
