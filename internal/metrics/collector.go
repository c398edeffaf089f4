package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/health-validator/internal/aggregate"
	"github.com/angeloszaimis/health-validator/internal/healthcheck"
)

type EventType string

const (
	EventProbeCompleted EventType = "probe_completed"
	EventStatusChanged  EventType = "status_changed"
	EventRoundCompleted EventType = "round_completed"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Service   string
	Status    healthcheck.Status
	Previous  healthcheck.Status
	Latency   time.Duration
	Overall   aggregate.Verdict
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues an event without blocking. It is a no-op on a nil collector.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics buffer full, dropping event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventProbeCompleted:
		c.metrics.RecordProbe(event.Service, event.Status, event.Latency)

	case EventStatusChanged:
		c.metrics.RecordTransition(event.Service)

	case EventRoundCompleted:
		c.metrics.RecordRound(event.Overall, event.Latency)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
