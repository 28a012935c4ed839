package api

import (
	"net/http"

	"github.com/liftwise/liftwise/internal/log"
)

// PlanHandler handles the weekly plan endpoint.
type PlanHandler struct {
	planner Planner
	logger  log.Logger
}

// NewPlanHandler creates a new plan handler. planner may be nil when no
// tool agent is configured; the endpoint then reports 503.
func NewPlanHandler(p Planner, logger log.Logger) *PlanHandler {
	return &PlanHandler{planner: p, logger: logger}
}

// RegisterRoutes registers plan routes on the given mux.
func (h *PlanHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/weekly-plan", h.handleGenerate)
}

// PlanResponse is the response body for POST /api/v1/weekly-plan.
type PlanResponse struct {
	Plan string `json:"plan"`
}

// handleGenerate produces a weekly training plan draft. The interactive
// review loop belongs to the console; the API returns the draft as-is.
func (h *PlanHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.planner == nil {
		writeError(w, http.StatusServiceUnavailable, "planner_unavailable", "weekly planning is not configured", h.logger)
		return
	}

	plan := h.planner.Generate(r.Context())
	writeJSON(w, http.StatusOK, PlanResponse{Plan: plan}, h.logger)
}
