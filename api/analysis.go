package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/liftwise/liftwise/internal/log"
)

// maxAnalysisDays caps the day-series length accepted per request.
const maxAnalysisDays = 31

// AnalysisHandler handles the health day-series analysis endpoint.
//
// The endpoint renders the numeric series into a plain-text prompt and
// answers it in direct mode: no tool agent and no knowledge retrieval,
// since the numbers themselves are the context.
type AnalysisHandler struct {
	coach  Coach
	logger log.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(c Coach, logger log.Logger) *AnalysisHandler {
	return &AnalysisHandler{coach: c, logger: logger}
}

// RegisterRoutes registers analysis routes on the given mux.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/analysis", h.handleAnalysis)
}

// AnalysisRequest is the request body for POST /api/v1/analysis.
// Series are ordered oldest to newest, one entry per day. Either series
// may be omitted; at least one must be present.
type AnalysisRequest struct {
	SleepMinutes []int  `json:"sleep_minutes,omitempty"`
	StepCounts   []int  `json:"step_counts,omitempty"`
	Question     string `json:"question,omitempty"`
}

// AnalysisResponse is the response body for POST /api/v1/analysis.
type AnalysisResponse struct {
	Text string `json:"text"`
}

func (h *AnalysisHandler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", h.logger)
		return
	}
	if len(req.SleepMinutes) == 0 && len(req.StepCounts) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "at least one of sleep_minutes or step_counts is required", h.logger)
		return
	}
	if len(req.SleepMinutes) > maxAnalysisDays || len(req.StepCounts) > maxAnalysisDays {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("series limited to %d days", maxAnalysisDays), h.logger)
		return
	}

	text := h.coach.RespondDirect(r.Context(), analysisPrompt(req), nil)
	writeJSON(w, http.StatusOK, AnalysisResponse{Text: text}, h.logger)
}

// analysisPrompt renders the day series into a plain-text question.
func analysisPrompt(req AnalysisRequest) string {
	var b strings.Builder
	b.WriteString("Analyze the following daily health data (oldest day first):\n\n")

	if len(req.SleepMinutes) > 0 {
		b.WriteString("Sleep per day:\n")
		for i, m := range req.SleepMinutes {
			hours := float64(m) / 60
			fmt.Fprintf(&b, "- Day %d: %d minutes (%.1f hours)\n", i+1, m, hours)
		}
		b.WriteString("\n")
	}

	if len(req.StepCounts) > 0 {
		b.WriteString("Steps per day:\n")
		for i, s := range req.StepCounts {
			fmt.Fprintf(&b, "- Day %d: %d steps\n", i+1, s)
		}
		b.WriteString("\n")
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		question = "Summarize the trends, flag anything concerning, and suggest one concrete improvement."
	}
	b.WriteString(question)
	return b.String()
}
