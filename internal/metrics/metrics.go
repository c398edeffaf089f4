package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/angeloszaimis/health-validator/internal/aggregate"
	"github.com/angeloszaimis/health-validator/internal/healthcheck"
)

const maxSamples = 1000

type Metrics struct {
	mutex          sync.RWMutex
	probes         map[string]int64
	statusCounts   map[string]map[healthcheck.Status]int64
	latencies      map[string][]time.Duration
	lastStatus     map[string]healthcheck.Status
	transitions    map[string]int64
	rounds         int64
	verdicts       map[aggregate.Verdict]int64
	roundDurations []time.Duration
	startTime      time.Time
}

type Snapshot struct {
	TotalRounds int64                       `json:"total_rounds"`
	TotalProbes int64                       `json:"total_probes"`
	Uptime      time.Duration               `json:"uptime"`
	Verdicts    map[aggregate.Verdict]int64 `json:"verdicts"`
	AvgRound    time.Duration               `json:"avg_round"`
	P95Round    time.Duration               `json:"p95_round"`
	Services    map[string]ServiceMetrics   `json:"services"`
}

type ServiceMetrics struct {
	Probes       int64                        `json:"probes"`
	LastStatus   healthcheck.Status           `json:"last_status"`
	StatusCounts map[healthcheck.Status]int64 `json:"status_counts"`
	Transitions  int64                        `json:"transitions"`
	AvgLatency   time.Duration                `json:"avg_latency"`
	P50Latency   time.Duration                `json:"p50_latency"`
	P95Latency   time.Duration                `json:"p95_latency"`
	P99Latency   time.Duration                `json:"p99_latency"`
}

func (m *Metrics) RecordProbe(service string, status healthcheck.Status, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.probes[service]++
	m.lastStatus[service] = status

	if m.statusCounts[service] == nil {
		m.statusCounts[service] = make(map[healthcheck.Status]int64)
	}
	m.statusCounts[service][status]++

	m.latencies[service] = appendSample(m.latencies[service], latency)
}

func (m *Metrics) RecordTransition(service string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.transitions[service]++
}

func (m *Metrics) RecordRound(overall aggregate.Verdict, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.rounds++
	m.verdicts[overall]++
	m.roundDurations = appendSample(m.roundDurations, duration)
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalRounds: m.rounds,
		Uptime:      time.Since(m.startTime),
		Verdicts:    make(map[aggregate.Verdict]int64, len(m.verdicts)),
		Services:    make(map[string]ServiceMetrics, len(m.probes)),
	}

	for verdict, n := range m.verdicts {
		snap.Verdicts[verdict] = n
	}

	if len(m.roundDurations) > 0 {
		sorted := sortedCopy(m.roundDurations)
		snap.AvgRound = average(sorted)
		snap.P95Round = percentile(sorted, 0.95)
	}

	for service, probes := range m.probes {
		snap.TotalProbes += probes

		sm := ServiceMetrics{
			Probes:       probes,
			LastStatus:   m.lastStatus[service],
			StatusCounts: make(map[healthcheck.Status]int64, len(m.statusCounts[service])),
			Transitions:  m.transitions[service],
		}
		for status, n := range m.statusCounts[service] {
			sm.StatusCounts[status] = n
		}

		if samples := m.latencies[service]; len(samples) > 0 {
			sorted := sortedCopy(samples)
			sm.AvgLatency = average(sorted)
			sm.P50Latency = percentile(sorted, 0.50)
			sm.P95Latency = percentile(sorted, 0.95)
			sm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Services[service] = sm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		probes:       make(map[string]int64),
		statusCounts: make(map[string]map[healthcheck.Status]int64),
		latencies:    make(map[string][]time.Duration),
		lastStatus:   make(map[string]healthcheck.Status),
		transitions:  make(map[string]int64),
		verdicts:     make(map[aggregate.Verdict]int64),
		startTime:    time.Now(),
	}
}

// appendSample keeps at most maxSamples, dropping the oldest.
func appendSample(samples []time.Duration, d time.Duration) []time.Duration {
	samples = append(samples, d)
	if len(samples) > maxSamples {
		samples = samples[1:]
	}
	return samples
}

func sortedCopy(durations []time.Duration) []time.Duration {
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	return sorted
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
