package metrics_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/health-validator/internal/aggregate"
	"github.com/angeloszaimis/health-validator/internal/healthcheck"
	"github.com/angeloszaimis/health-validator/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
	})

	Describe("NewCollector", func() {
		It("should create a collector with specified buffer size", func() {
			c := metrics.NewCollector(500, log)
			Expect(c).NotTo(BeNil())
			Expect(c.EventChannel()).NotTo(BeNil())
		})
	})

	Describe("Start and event processing", func() {
		It("should process EventProbeCompleted", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{
				Type:    metrics.EventProbeCompleted,
				Service: "python",
				Status:  healthcheck.StatusSlow,
				Latency: 700 * time.Millisecond,
			})

			Eventually(func() int64 {
				return collector.Snapshot().Services["python"].Probes
			}).Should(Equal(int64(1)))
			Expect(collector.Snapshot().Services["python"].AvgLatency).To(Equal(700 * time.Millisecond))
		})

		It("should process EventStatusChanged", func() {
			collector.Start(ctx)

			collector.EventChannel() <- metrics.MetricEvent{
				Type:    metrics.EventProbeCompleted,
				Service: "cpp",
				Status:  healthcheck.StatusOffline,
			}
			collector.EventChannel() <- metrics.MetricEvent{
				Type:     metrics.EventStatusChanged,
				Service:  "cpp",
				Previous: healthcheck.StatusHealthy,
				Status:   healthcheck.StatusOffline,
			}

			Eventually(func() int64 {
				return collector.Snapshot().Services["cpp"].Transitions
			}).Should(Equal(int64(1)))
		})

		It("should process EventRoundCompleted", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{
				Type:    metrics.EventRoundCompleted,
				Overall: aggregate.VerdictDegraded,
				Latency: 900 * time.Millisecond,
			})

			Eventually(func() int64 {
				return collector.Snapshot().Verdicts[aggregate.VerdictDegraded]
			}).Should(Equal(int64(1)))
		})

		It("should drain events on context cancellation", func() {
			for i := 0; i < 5; i++ {
				collector.EventChannel() <- metrics.MetricEvent{
					Type:    metrics.EventProbeCompleted,
					Service: "go",
					Status:  healthcheck.StatusHealthy,
				}
			}

			cancel()
			collector.Start(ctx)

			Eventually(func() int64 {
				return collector.Snapshot().Services["go"].Probes
			}).Should(Equal(int64(5)))
		})
	})

	Describe("Emit", func() {
		It("should drop events instead of blocking when the buffer is full", func() {
			small := metrics.NewCollector(1, log)

			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 10; i++ {
					small.Emit(metrics.MetricEvent{Type: metrics.EventProbeCompleted, Service: "go"})
				}
			}()

			Eventually(done).Should(BeClosed())
		})

		It("should be a no-op on a nil collector", func() {
			var nilCollector *metrics.Collector
			Expect(func() {
				nilCollector.Emit(metrics.MetricEvent{Type: metrics.EventProbeCompleted})
			}).NotTo(Panic())
		})
	})

	Describe("Handler", func() {
		It("should serve the snapshot as JSON", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{
				Type:    metrics.EventProbeCompleted,
				Service: "java",
				Status:  healthcheck.StatusHealthy,
				Latency: 20 * time.Millisecond,
			})
			Eventually(func() int64 { return collector.Snapshot().TotalProbes }).Should(Equal(int64(1)))

			rec := httptest.NewRecorder()
			collector.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var body map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("total_probes", BeNumerically("==", 1)))
			Expect(body["services"]).To(HaveKey("java"))

			java := body["services"].(map[string]any)["java"].(map[string]any)
			Expect(java["last_status"]).To(Equal("healthy"))
			Expect(java["status_counts"]).To(HaveKeyWithValue("healthy", BeNumerically("==", 1)))
		})
	})
})
