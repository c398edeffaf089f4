package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/health-validator/internal/aggregate"
	"github.com/angeloszaimis/health-validator/internal/healthcheck"
)

// RoundRunner runs one probing round over every registered target.
type RoundRunner interface {
	RunRound(ctx context.Context) map[string]healthcheck.ServiceHealthInfo
}

// Snapshotter returns the last known result per service.
type Snapshotter interface {
	GetAll() map[string]healthcheck.ServiceHealthInfo
}

type ValidateResponse struct {
	Services map[string]healthcheck.ServiceHealthInfo `json:"services"`
	Overall  aggregate.Verdict                        `json:"overall"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type ValidatorHandler struct {
	logger      *slog.Logger
	rounds      RoundRunner
	cache       Snapshotter
	serviceName string
}

func NewValidatorHandler(logger *slog.Logger, rounds RoundRunner, cache Snapshotter, serviceName string) *ValidatorHandler {
	return &ValidatorHandler{
		logger:      logger,
		rounds:      rounds,
		cache:       cache,
		serviceName: serviceName,
	}
}

// Validate runs a fresh round and reports it. The status code is 200 whatever
// the verdict.
func (h *ValidatorHandler) Validate(w http.ResponseWriter, r *http.Request) {
	services := h.rounds.RunRound(r.Context())
	overall := aggregate.Overall(services)

	if overall != aggregate.VerdictHealthy {
		h.logger.Info("Fleet is not healthy",
			slog.String("overall", string(overall)),
			slog.Int("services", len(services)))
	}

	h.writeJSON(w, ValidateResponse{Services: services, Overall: overall})
}

// Services reports the cached results without probing. Entries may come from
// different rounds.
func (h *ValidatorHandler) Services(w http.ResponseWriter, r *http.Request) {
	services := h.cache.GetAll()
	h.writeJSON(w, ValidateResponse{Services: services, Overall: aggregate.Overall(services)})
}

// Health is the liveness probe for the validator itself.
func (h *ValidatorHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, HealthResponse{Status: "healthy", Service: h.serviceName})
}

func (h *ValidatorHandler) writeJSON(w http.ResponseWriter, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", slog.Any("err", err))
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
