package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/angeloszaimis/health-validator/internal/aggregate"
	"github.com/angeloszaimis/health-validator/internal/cache"
	"github.com/angeloszaimis/health-validator/internal/healthcheck"
)

// Recorder records probe and round outcomes. A nil *Recorder records nothing.
type Recorder struct {
	probes        metric.Int64Counter
	probeDuration metric.Float64Histogram
	changes       metric.Int64Counter
	rounds        metric.Int64Counter
	roundDuration metric.Float64Histogram
}

func NewRecorder(meter metric.Meter) (*Recorder, error) {
	probes, err := meter.Int64Counter(
		"validator.probe.total",
		metric.WithDescription("Total number of dependency probes"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	probeDuration, err := meter.Float64Histogram(
		"validator.probe.duration_ms",
		metric.WithDescription("Dependency probe latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	changes, err := meter.Int64Counter(
		"validator.status.changes",
		metric.WithDescription("Number of dependency status transitions"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}

	rounds, err := meter.Int64Counter(
		"validator.round.total",
		metric.WithDescription("Total number of validation rounds"),
		metric.WithUnit("{round}"),
	)
	if err != nil {
		return nil, err
	}

	roundDuration, err := meter.Float64Histogram(
		"validator.round.duration_ms",
		metric.WithDescription("Validation round duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		probes:        probes,
		probeDuration: probeDuration,
		changes:       changes,
		rounds:        rounds,
		roundDuration: roundDuration,
	}, nil
}

func (r *Recorder) RecordProbe(ctx context.Context, service string, info healthcheck.ServiceHealthInfo) {
	if r == nil {
		return
	}

	opt := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("status", info.Status.String()),
	)
	r.probes.Add(ctx, 1, opt)
	r.probeDuration.Record(ctx, float64(info.LatencyMS), opt)
}

func (r *Recorder) RecordChange(ctx context.Context, change cache.Change) {
	if r == nil {
		return
	}

	from := "unknown"
	if change.Known {
		from = change.From.String()
	}

	r.changes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", change.Service),
		attribute.String("from", from),
		attribute.String("to", change.To.String()),
	))
}

func (r *Recorder) RecordRound(ctx context.Context, overall aggregate.Verdict, duration time.Duration) {
	if r == nil {
		return
	}

	opt := metric.WithAttributes(attribute.String("overall", string(overall)))
	r.rounds.Add(ctx, 1, opt)
	r.roundDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}
