// Validateload hammers the validator's /validate endpoint with concurrent
// callers and reports round latency percentiles and the verdict distribution.
//
// Usage:
//
//	go run ./scripts/validateload -url http://localhost:8001/validate -concurrency 10 -requests 200
//	go run ./scripts/validateload -concurrency 50 -requests 1000 -out summary.json
//
// The exit code is 2 when any request failed at the HTTP level.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type validateResponse struct {
	Services map[string]struct {
		Status    string `json:"status"`
		LatencyMS uint64 `json:"latency_ms"`
	} `json:"services"`
	Overall string `json:"overall"`
}

type summary struct {
	Target       string           `json:"target"`
	Requests     int              `json:"requests"`
	Concurrency  int              `json:"concurrency"`
	Failures     int              `json:"failures"`
	DurationMS   int64            `json:"duration_ms"`
	Throughput   float64          `json:"throughput_rps"`
	Verdicts     map[string]int   `json:"verdicts"`
	ServiceState map[string]int   `json:"service_states"`
	Latency      map[string]int64 `json:"latency_ms"`
}

type results struct {
	mu        sync.Mutex
	latencies []time.Duration
	verdicts  map[string]int
	states    map[string]int
	failures  int
}

func (r *results) record(latency time.Duration, resp *validateResponse, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.latencies = append(r.latencies, latency)
	if err != nil {
		r.failures++
		return
	}

	r.verdicts[resp.Overall]++
	for name, svc := range resp.Services {
		r.states[name+"="+svc.Status]++
	}
}

func main() {
	url := flag.String("url", "http://localhost:8001/validate", "validate endpoint")
	concurrency := flag.Int("concurrency", 10, "number of concurrent callers")
	requests := flag.Int("requests", 100, "total number of requests")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	outJSON := flag.String("out", "", "write JSON summary to this file (optional)")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client := &http.Client{Timeout: *timeout}
	res := &results{verdicts: map[string]int{}, states: map[string]int{}}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)

	start := time.Now()
	for i := 0; i < *requests; i++ {
		g.Go(func() error {
			began := time.Now()
			resp, err := call(ctx, client, *url)
			elapsed := time.Since(began)
			res.record(elapsed, resp, err)

			if err != nil {
				log.Debug("Request failed", slog.Int("idx", i), slog.Any("err", err))
				return nil
			}
			log.Debug("Request done",
				slog.Int("idx", i),
				slog.String("overall", resp.Overall),
				slog.Duration("duration", elapsed))
			return nil
		})
	}
	_ = g.Wait()
	total := time.Since(start)

	sum := summarize(res, *url, *requests, *concurrency, total)
	printSummary(sum)

	if *outJSON != "" {
		if err := writeJSON(*outJSON, sum); err != nil {
			log.Error("Failed to write summary", slog.Any("err", err))
			os.Exit(1)
		}
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if sum.Failures > 0 {
		os.Exit(2)
	}
}

func call(ctx context.Context, client *http.Client, url string) (*validateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func summarize(res *results, url string, requests, concurrency int, total time.Duration) summary {
	res.mu.Lock()
	defer res.mu.Unlock()

	sorted := make([]time.Duration, len(res.latencies))
	copy(sorted, res.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pick := func(p float64) int64 {
		if len(sorted) == 0 {
			return 0
		}
		return sorted[int(float64(len(sorted)-1)*p)].Milliseconds()
	}

	return summary{
		Target:       url,
		Requests:     requests,
		Concurrency:  concurrency,
		Failures:     res.failures,
		DurationMS:   total.Milliseconds(),
		Throughput:   float64(len(sorted)) / total.Seconds(),
		Verdicts:     res.verdicts,
		ServiceState: res.states,
		Latency: map[string]int64{
			"p50": pick(0.50),
			"p90": pick(0.90),
			"p95": pick(0.95),
			"p99": pick(0.99),
			"max": pick(1.0),
		},
	}
}

func printSummary(s summary) {
	fmt.Println("--- Validate Load Summary ---")
	fmt.Printf("Target: %s\n", s.Target)
	fmt.Printf("Requests: %d  Concurrency: %d  Failures: %d\n", s.Requests, s.Concurrency, s.Failures)
	fmt.Printf("Duration: %dms  Throughput: %.2f req/s\n", s.DurationMS, s.Throughput)
	fmt.Printf("Latency: p50=%dms p90=%dms p95=%dms p99=%dms max=%dms\n",
		s.Latency["p50"], s.Latency["p90"], s.Latency["p95"], s.Latency["p99"], s.Latency["max"])

	fmt.Println("\nVerdicts:")
	for _, k := range sortedKeys(s.Verdicts) {
		fmt.Printf("  %s -> %d\n", k, s.Verdicts[k])
	}

	fmt.Println("\nService states:")
	for _, k := range sortedKeys(s.ServiceState) {
		fmt.Printf("  %s -> %d\n", k, s.ServiceState[k])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeJSON(path string, s summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
