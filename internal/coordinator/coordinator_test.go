package coordinator_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/angeloszaimis/health-validator/internal/aggregate"
	"github.com/angeloszaimis/health-validator/internal/cache"
	"github.com/angeloszaimis/health-validator/internal/coordinator"
	"github.com/angeloszaimis/health-validator/internal/healthcheck"
	"github.com/angeloszaimis/health-validator/internal/metrics"
	"github.com/angeloszaimis/health-validator/internal/target"
)

type fakeProber struct {
	delays   map[string]time.Duration
	statuses map[string]healthcheck.Status

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (f *fakeProber) Probe(ctx context.Context, t target.Target) healthcheck.ServiceHealthInfo {
	start := time.Now()

	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	time.Sleep(f.delays[t.Name])

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	status := f.statuses[t.Name]
	if ctx.Err() != nil {
		status = healthcheck.StatusOffline
	}

	return healthcheck.ServiceHealthInfo{
		Status:    status,
		LatencyMS: uint64(time.Since(start).Milliseconds()),
		LastCheck: start.UTC(),
	}
}

func registry(names ...string) *target.Registry {
	targets := make([]target.Target, len(names))
	for i, n := range names {
		targets[i] = target.Target{Name: n, URL: fmt.Sprintf("http://%s:80/health", n)}
	}
	reg, err := target.NewRegistry(targets)
	Expect(err).NotTo(HaveOccurred())
	return reg
}

var _ = Describe("Coordinator", func() {
	var (
		log    *slog.Logger
		hc     *cache.Cache
		prober *fakeProber
		reg    *target.Registry
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		hc = cache.New()
		prober = &fakeProber{
			delays:   map[string]time.Duration{},
			statuses: map[string]healthcheck.Status{},
		}
		reg = registry("python", "go", "cpp", "java")
	})

	Describe("RunRound", func() {
		It("should return exactly one entry per registered target", func() {
			c := coordinator.New(reg, prober, hc, log, nil, nil, nil)

			services := c.RunRound(context.Background())

			Expect(services).To(HaveLen(4))
			Expect(services).To(HaveKey("python"))
			Expect(services).To(HaveKey("go"))
			Expect(services).To(HaveKey("cpp"))
			Expect(services).To(HaveKey("java"))
		})

		It("should merge the round into the cache", func() {
			prober.statuses["cpp"] = healthcheck.StatusOffline
			c := coordinator.New(reg, prober, hc, log, nil, nil, nil)

			services := c.RunRound(context.Background())

			Expect(hc.GetAll()).To(Equal(services))
			Expect(aggregate.Overall(services)).To(Equal(aggregate.VerdictUnhealthy))
		})

		It("should probe all targets concurrently", func() {
			for _, n := range reg.Names() {
				prober.delays[n] = 400 * time.Millisecond
			}
			c := coordinator.New(reg, prober, hc, log, nil, nil, nil)

			start := time.Now()
			c.RunRound(context.Background())
			elapsed := time.Since(start)

			Expect(elapsed).To(BeNumerically(">=", 400*time.Millisecond))
			Expect(elapsed).To(BeNumerically("<", 800*time.Millisecond))
			Expect(prober.maxInFlight).To(Equal(4))
		})

		It("should wait for the slowest probe before returning", func() {
			prober.delays["java"] = 300 * time.Millisecond
			c := coordinator.New(reg, prober, hc, log, nil, nil, nil)

			services := c.RunRound(context.Background())

			Expect(services["java"].LatencyMS).To(BeNumerically(">=", 300))
			Expect(hc.Len()).To(Equal(4))
		})

		It("should not cancel probes when the caller goes away", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			c := coordinator.New(reg, prober, hc, log, nil, nil, nil)

			services := c.RunRound(ctx)

			Expect(aggregate.Overall(services)).To(Equal(aggregate.VerdictHealthy))
		})

		It("should return an empty mapping for an empty registry", func() {
			c := coordinator.New(registry(), prober, hc, log, nil, nil, nil)

			services := c.RunRound(context.Background())

			Expect(services).To(BeEmpty())
			Expect(aggregate.Overall(services)).To(Equal(aggregate.VerdictHealthy))
		})

		It("should keep the cache consistent across concurrent rounds", func() {
			for _, n := range reg.Names() {
				prober.delays[n] = 20 * time.Millisecond
			}
			c := coordinator.New(reg, prober, hc, log, nil, nil, nil)

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					Expect(c.RunRound(context.Background())).To(HaveLen(4))
				}()
			}
			wg.Wait()

			Expect(hc.Len()).To(Equal(4))
			for _, info := range hc.GetAll() {
				Expect(info.Status).To(Equal(healthcheck.StatusHealthy))
			}
		})

		It("should publish probe, transition and round events", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			collector := metrics.NewCollector(64, log)
			collector.Start(ctx)

			prober.statuses["go"] = healthcheck.StatusSlow
			c := coordinator.New(reg, prober, hc, log, nil, nil, collector)
			c.RunRound(context.Background())

			Eventually(func() int64 { return collector.Snapshot().TotalRounds }).Should(Equal(int64(1)))
			Eventually(func() int64 { return collector.Snapshot().TotalProbes }).Should(Equal(int64(4)))
			Eventually(func() int64 { return collector.Snapshot().Services["go"].Transitions }).Should(Equal(int64(1)))
			Expect(collector.Snapshot().Verdicts[aggregate.VerdictDegraded]).To(Equal(int64(1)))
		})

		It("should trace the round with one child span per probe", func() {
			spans := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
			DeferCleanup(tp.Shutdown, context.Background())

			c := coordinator.New(reg, prober, hc, log, tp.Tracer("test"), nil, nil)
			c.RunRound(context.Background())

			ended := spans.Ended()
			Expect(ended).To(HaveLen(5))

			var root sdktrace.ReadOnlySpan
			names := []string{}
			for _, s := range ended {
				names = append(names, s.Name())
				if s.Name() == "validate.round" {
					root = s
				}
			}
			Expect(names).To(ConsistOf("validate.round", "probe python", "probe go", "probe cpp", "probe java"))
			Expect(root).NotTo(BeNil())
			for _, s := range ended {
				if s.Name() != "validate.round" {
					Expect(s.Parent().SpanID()).To(Equal(root.SpanContext().SpanID()))
				}
			}
		})
	})

	Describe("with the HTTP prober", func() {
		It("should refresh last_check on every round", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			reg, err := target.NewRegistry([]target.Target{{Name: "x", URL: srv.URL}})
			Expect(err).NotTo(HaveOccurred())
			c := coordinator.New(reg, healthcheck.NewProber(time.Second, 500*time.Millisecond, log), hc, log, nil, nil, nil)

			first := c.RunRound(context.Background())["x"].LastCheck
			time.Sleep(5 * time.Millisecond)
			c.RunRound(context.Background())

			latest, ok := hc.Get("x")
			Expect(ok).To(BeTrue())
			Expect(latest.LastCheck).To(BeTemporally(">", first))
		})

		It("should complete a round with a dead target within the timeout", func() {
			dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			deadURL := dead.URL
			dead.Close()

			hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			}))
			defer hang.Close()

			ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			defer ok.Close()

			reg, err := target.NewRegistry([]target.Target{
				{Name: "dead", URL: deadURL},
				{Name: "hang", URL: hang.URL},
				{Name: "ok", URL: ok.URL},
			})
			Expect(err).NotTo(HaveOccurred())
			c := coordinator.New(reg, healthcheck.NewProber(300*time.Millisecond, 200*time.Millisecond, log), hc, log, nil, nil, nil)

			start := time.Now()
			services := c.RunRound(context.Background())

			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
			Expect(services["dead"].Status).To(Equal(healthcheck.StatusOffline))
			Expect(services["hang"].Status).To(Equal(healthcheck.StatusOffline))
			Expect(services["ok"].Status).To(Equal(healthcheck.StatusHealthy))
			Expect(aggregate.Overall(services)).To(Equal(aggregate.VerdictUnhealthy))
		})
	})
})
