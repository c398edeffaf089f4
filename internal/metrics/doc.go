// Package metrics keeps in-process statistics about validation rounds.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Rounds completed and the overall verdict of each
//   - Probe counts per service, broken down by status
//   - Status transitions per service
//   - Probe latency with percentile calculations (P50, P95, P99)
//
// The collector runs in a dedicated goroutine. Emit never blocks: when the
// buffer is full the event is dropped so a slow consumer cannot hold up a
// validation round.
//
// Example usage:
//
//	collector := metrics.NewCollector(1024, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:    metrics.EventProbeCompleted,
//		Service: "python",
//		Status:  healthcheck.StatusHealthy,
//		Latency: 42 * time.Millisecond,
//	})
//
//	snapshot := collector.Snapshot()
//
// Storage is guarded by sync.RWMutex and pending events are drained on
// shutdown.
package metrics
