// Package coordinator runs validation rounds: every registered target is
// probed concurrently, the round waits for all of them, and the results are
// published to the shared cache in one step.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/health-validator/internal/aggregate"
	"github.com/angeloszaimis/health-validator/internal/cache"
	"github.com/angeloszaimis/health-validator/internal/healthcheck"
	"github.com/angeloszaimis/health-validator/internal/metrics"
	"github.com/angeloszaimis/health-validator/internal/target"
	"github.com/angeloszaimis/health-validator/internal/telemetry"
)

// Prober checks a single target and never fails.
type Prober interface {
	Probe(ctx context.Context, t target.Target) healthcheck.ServiceHealthInfo
}

type Coordinator struct {
	registry  *target.Registry
	prober    Prober
	cache     *cache.Cache
	logger    *slog.Logger
	tracer    trace.Tracer
	recorder  *telemetry.Recorder
	collector *metrics.Collector
}

// New wires a coordinator. tracer, recorder and collector are optional.
func New(
	registry *target.Registry,
	prober Prober,
	healthCache *cache.Cache,
	logger *slog.Logger,
	tracer trace.Tracer,
	recorder *telemetry.Recorder,
	collector *metrics.Collector,
) *Coordinator {
	if tracer == nil {
		tracer = telemetry.NewNoop().Tracer()
	}

	return &Coordinator{
		registry:  registry,
		prober:    prober,
		cache:     healthCache,
		logger:    logger,
		tracer:    tracer,
		recorder:  recorder,
		collector: collector,
	}
}

// RunRound probes every target, merges the results into the cache and returns
// this round's results keyed by target name. Probes are detached from ctx
// cancellation; each is bounded only by the prober's own timeout.
func (c *Coordinator) RunRound(ctx context.Context) map[string]healthcheck.ServiceHealthInfo {
	start := time.Now()
	targets := c.registry.Targets()

	ctx, span := c.tracer.Start(ctx, "validate.round",
		trace.WithAttributes(attribute.Int("validator.targets", len(targets))))
	defer span.End()

	probeCtx := context.WithoutCancel(ctx)
	results := make([]healthcheck.ServiceHealthInfo, len(targets))

	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			results[i] = c.probe(probeCtx, t)
			return nil
		})
	}
	_ = g.Wait()

	services := make(map[string]healthcheck.ServiceHealthInfo, len(targets))
	for i, t := range targets {
		services[t.Name] = results[i]
	}

	changes := c.cache.Merge(services)
	for _, change := range changes {
		c.reportChange(ctx, change)
	}

	overall := aggregate.Overall(services)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.String("validator.overall", string(overall)))
	c.recorder.RecordRound(ctx, overall, elapsed)
	c.collector.Emit(metrics.MetricEvent{
		Type:    metrics.EventRoundCompleted,
		Overall: overall,
		Latency: elapsed,
	})

	c.logger.Debug("Validation round completed",
		slog.Int("targets", len(targets)),
		slog.String("overall", string(overall)),
		slog.Duration("duration", elapsed))

	return services
}

func (c *Coordinator) probe(ctx context.Context, t target.Target) healthcheck.ServiceHealthInfo {
	ctx, span := c.tracer.Start(ctx, "probe "+t.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("validator.service", t.Name),
			attribute.String("url.full", t.URL),
		))
	defer span.End()

	info := c.prober.Probe(ctx, t)

	span.SetAttributes(
		attribute.String("validator.status", info.Status.String()),
		attribute.Int64("validator.latency_ms", int64(info.LatencyMS)),
	)

	c.recorder.RecordProbe(ctx, t.Name, info)
	c.collector.Emit(metrics.MetricEvent{
		Type:    metrics.EventProbeCompleted,
		Service: t.Name,
		Status:  info.Status,
		Latency: time.Duration(info.LatencyMS) * time.Millisecond,
	})

	return info
}

func (c *Coordinator) reportChange(ctx context.Context, change cache.Change) {
	c.recorder.RecordChange(ctx, change)
	c.collector.Emit(metrics.MetricEvent{
		Type:     metrics.EventStatusChanged,
		Service:  change.Service,
		Previous: change.From,
		Status:   change.To,
	})

	service := slog.String("service", change.Service)
	status := slog.String("status", change.To.String())

	switch {
	case !change.Known:
		c.logger.Info("Service discovered", service, status)
	case change.To == healthcheck.StatusOffline:
		c.logger.Warn("Service went offline", service, slog.String("previous", change.From.String()))
	case change.To == healthcheck.StatusSlow:
		c.logger.Warn("Service is slow", service, slog.String("previous", change.From.String()))
	default:
		c.logger.Info("Service recovered", service, slog.String("previous", change.From.String()))
	}
}
