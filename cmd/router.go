package main

import (
	"net/http"

	"github.com/angeloszaimis/health-validator/internal/handler"
	"github.com/angeloszaimis/health-validator/internal/metrics"
)

func setupRouter(validatorHandler *handler.ValidatorHandler, metricsCollector *metrics.Collector, prometheus http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /validate", validatorHandler.Validate)
	mux.HandleFunc("GET /services", validatorHandler.Services)
	mux.HandleFunc("GET /health", validatorHandler.Health)
	mux.HandleFunc("GET /metrics", metricsCollector.Handler())
	if prometheus != nil {
		mux.Handle("GET /metrics/prometheus", prometheus)
	}

	return mux
}
