// Package telemetry wires OpenTelemetry for the validator.
//
// A Provider owns the tracer and meter providers and, when the Prometheus
// exporter is selected, an HTTP handler exposing the metrics registry. A
// Recorder turns probe and round outcomes into OpenTelemetry instruments:
//
//	validator.probe.total        counter   service, status
//	validator.probe.duration_ms  histogram service, status
//	validator.status.changes     counter   service, from, to
//	validator.round.total        counter   overall
//	validator.round.duration_ms  histogram overall
//
// Exporters are chosen by name: "prometheus", "stdout", "otlp" or "none" for
// metrics; "stdout", "otlp" or "none" for traces. OTLP endpoints come from the
// standard OTEL_EXPORTER_OTLP_* environment variables.
package telemetry
