package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/health-validator/internal/target"
)

const (
	DefaultTimeout       = 3 * time.Second
	DefaultSlowThreshold = 500 * time.Millisecond

	maxDrainBytes = 64 << 10
)

// Prober checks one target at a time. It is safe for concurrent use; all
// probes share the same HTTP client and connection pool.
type Prober struct {
	client        *http.Client
	timeout       time.Duration
	slowThreshold time.Duration
	logger        *slog.Logger
}

// NewProber creates a prober with the given hard timeout and slow threshold.
// Non-positive values fall back to DefaultTimeout and DefaultSlowThreshold.
func NewProber(timeout, slowThreshold time.Duration, logger *slog.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}

	return &Prober{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout:       timeout,
		slowThreshold: slowThreshold,
		logger:        logger,
	}
}

// Timeout returns the hard per-probe timeout.
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Probe sends a GET to the target URL and classifies the outcome. It never
// fails: transport errors, timeouts and non-2xx responses all become
// StatusOffline, with the latency observed up to that point.
func (p *Prober) Probe(ctx context.Context, t target.Target) ServiceHealthInfo {
	startedAt := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.send(ctx, t.URL)
	latency := time.Since(startedAt)

	statusCode := 0
	if res != nil {
		statusCode = res.StatusCode
		discard(res.Body)
	}
	status := Classify(statusCode, err, latency, p.slowThreshold)

	if status == StatusOffline {
		p.logger.Debug("Probe failed",
			slog.String("service", t.Name),
			slog.String("url", t.URL),
			slog.Int("status_code", statusCode),
			slog.Duration("latency", latency),
			slog.Any("err", err))
	}

	return ServiceHealthInfo{
		Status:    status,
		LatencyMS: uint64(latency.Milliseconds()),
		LastCheck: startedAt.UTC(),
	}
}

// send returns as soon as response headers arrive; latency does not include
// reading the body.
func (p *Prober) send(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	return p.client.Do(req)
}

// discard drains a bounded amount of the body so the connection can be reused.
func discard(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrainBytes))
	_ = body.Close()
}

// Classify maps a probe outcome to a Status. Any error or non-2xx code is
// offline; otherwise latency below slowThreshold is healthy and the rest slow.
func Classify(statusCode int, err error, latency, slowThreshold time.Duration) Status {
	if err != nil || statusCode < 200 || statusCode > 299 {
		return StatusOffline
	}
	if latency < slowThreshold {
		return StatusHealthy
	}
	return StatusSlow
}
