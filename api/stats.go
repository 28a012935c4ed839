package api

import (
	"net/http"

	"github.com/liftwise/liftwise/internal/cache"
)

// StatsHandler reports runtime configuration and availability.
type StatsHandler struct {
	coach Coach
	cache *cache.Cache
}

// NewStatsHandler creates a new stats handler. cache may be nil.
func NewStatsHandler(c Coach, rc *cache.Cache) *StatsHandler {
	return &StatsHandler{coach: c, cache: rc}
}

// RegisterRoutes registers stats routes on the given mux.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/stats", h.handleStats)
}

// StatsResponse is the response body for GET /api/v1/stats.
type StatsResponse struct {
	Model              string `json:"model"`
	FallbackModel      string `json:"fallback_model,omitempty"`
	AgentAvailable     bool   `json:"agent_available"`
	RetrieverAvailable bool   `json:"retriever_available"`
	CacheEnabled       bool   `json:"cache_enabled"`
	CachedResponses    int    `json:"cached_responses"`
}

func (h *StatsHandler) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := StatsResponse{
		Model:              h.coach.PrimaryModel(),
		FallbackModel:      h.coach.FallbackModel(),
		AgentAvailable:     h.coach.AgentAvailable(),
		RetrieverAvailable: h.coach.RetrieverAvailable(),
	}
	if h.cache != nil {
		resp.CacheEnabled = true
		resp.CachedResponses = h.cache.Size()
	}
	writeJSON(w, http.StatusOK, resp, nil)
}
