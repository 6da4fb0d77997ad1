// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/okian/dabline/internal/gate"
	"github.com/okian/dabline/pkg/logger"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	// RunGate certifies the current tuning and returns the artifact.
	RunGate(ctx context.Context) (*gate.Artifact, error)

	// LatestArtifact returns the artifact of the last gate run.
	LatestArtifact() (*gate.Artifact, error)
}

// Server wires HTTP routes for the service.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	gateHandler   *GateHandler
}

// NewServer creates a new API server with all handlers. Metrics are served
// from reg.
func NewServer(deps Dependencies, reg prometheus.Gatherer, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler: NewHealthHandler(reg),
		statsHandler:  NewStatsHandler(deps),
		gateHandler:   NewGateHandler(deps, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/gate/run", MetricsMiddleware(s.gateHandler.HandleRun, "gate_run"))
	mux.HandleFunc("/gate/report", MetricsMiddleware(s.gateHandler.HandleReport, "gate_report"))
	mux.HandleFunc("/gate/summary", MetricsMiddleware(s.gateHandler.HandleSummary, "gate_summary"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
