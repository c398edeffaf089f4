// Fakeservice is a stand-in dependency for exercising the validator by hand.
// It answers /health after an optional delay with a configurable status code.
//
// Usage:
//
//	go run ./scripts/fakeservice -port 8000
//	go run ./scripts/fakeservice -port 8002 -delay 800ms
//	go run ./scripts/fakeservice -port 8003 -status 503
//	go run ./scripts/fakeservice -port 8080 -delay 5s
//
// Point the validator's targets at these ports to reproduce healthy, slow,
// offline and timed-out dependencies.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

func main() {
	port := flag.Int("port", 8000, "port to listen on")
	delay := flag.Duration("delay", 0, "delay before answering /health")
	jitter := flag.Duration("jitter", 0, "random extra delay added on top of -delay")
	status := flag.Int("status", http.StatusOK, "status code returned by /health")
	name := flag.String("name", "fake", "service name reported in the body")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil)).With(slog.String("service", *name))

	var served atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		wait := *delay
		if *jitter > 0 {
			wait += rand.N(*jitter)
		}

		select {
		case <-time.After(wait):
		case <-r.Context().Done():
			log.Info("Caller gave up", slog.Duration("after", wait))
			return
		}

		n := served.Add(1)
		log.Info("Answered health check",
			slog.String("from", r.RemoteAddr),
			slog.Int("status", *status),
			slog.Duration("delay", wait),
			slog.Int64("served", n))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(*status)
		_ = json.NewEncoder(w).Encode(map[string]any{"service": *name, "served": n})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Info("Starting fake service",
		slog.String("address", addr),
		slog.Duration("delay", *delay),
		slog.Int("status", *status))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("Server failed", slog.Any("err", err))
		os.Exit(1)
	}
}
