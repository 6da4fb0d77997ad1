package api

import (
	"errors"
	"net/http"

	service "github.com/okian/dabline/internal/app"
	"github.com/okian/dabline/internal/gate"
	"github.com/okian/dabline/pkg/logger"
)

// GateHandler exposes parity gate runs and their artifacts.
type GateHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewGateHandler creates a new gate handler.
func NewGateHandler(deps Dependencies, log logger.Logger) *GateHandler {
	return &GateHandler{deps: deps, logger: log}
}

// HandleRun handles POST /gate/run. The artifact is returned whatever the
// verdict; only a run that could not happen is an error.
func (h *GateHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	a, err := h.deps.RunGate(r.Context())
	if err != nil {
		status, code := gateErrorStatus(err)
		h.logger.Warn(r.Context(), "gate run rejected",
			logger.Int("status", status),
			logger.Error(err),
		)
		writeError(w, status, code, err)
		return
	}
	h.writeArtifact(w, a)
}

// HandleReport handles GET /gate/report.
func (h *GateHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	a, ok := h.latest(w, r)
	if !ok {
		return
	}
	h.writeArtifact(w, a)
}

// HandleSummary handles GET /gate/summary.
func (h *GateHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	a, ok := h.latest(w, r)
	if !ok {
		return
	}
	writeRaw(w, http.StatusOK, "text/plain; charset=utf-8", []byte(a.Text()))
}

func (h *GateHandler) latest(w http.ResponseWriter, r *http.Request) (*gate.Artifact, bool) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return nil, false
	}
	a, err := h.deps.LatestArtifact()
	if err != nil {
		status, code := gateErrorStatus(err)
		writeError(w, status, code, err)
		return nil, false
	}
	return a, true
}

func (h *GateHandler) writeArtifact(w http.ResponseWriter, a *gate.Artifact) {
	body, err := a.JSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", err)
		return
	}
	w.Header().Set("X-Gate-Verdict", string(a.Verdict))
	writeRaw(w, http.StatusOK, "application/json; charset=utf-8", body)
}

// gateErrorStatus maps service and gate errors to an HTTP status and code.
func gateErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNoArtifact):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNoCapture):
		return http.StatusConflict, "no_capture"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started"
	case errors.Is(err, gate.ErrCaptureLoad), errors.Is(err, gate.ErrEmptyCapture):
		return http.StatusUnprocessableEntity, "bad_capture"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
