package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/liftwise/liftwise/internal/cache"
	"github.com/liftwise/liftwise/internal/coach"
	"github.com/liftwise/liftwise/internal/log"
)

// maxChatBodyBytes caps the chat request body size.
const maxChatBodyBytes = 1 << 20 // 1 MiB

// ChatHandler handles coaching response endpoints.
//
// Endpoints:
//   - POST /api/v1/chat         - coaching response with optional history
//   - GET  /api/v1/chat?prompt= - one-shot response with cache fast path
type ChatHandler struct {
	coach  Coach
	cache  *cache.Cache
	logger log.Logger
}

// NewChatHandler creates a new chat handler. cache may be nil.
func NewChatHandler(c Coach, rc *cache.Cache, logger log.Logger) *ChatHandler {
	return &ChatHandler{coach: c, cache: rc, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat", h.handleChat)
	mux.HandleFunc("GET /api/v1/chat", h.handleQuickChat)
}

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	Prompt  string       `json:"prompt"`
	History []coach.Turn `json:"history,omitempty"`
}

// ChatResponse is the response body for the chat endpoints.
type ChatResponse struct {
	Text   string `json:"text"`
	Cached bool   `json:"cached,omitempty"`
}

// handleChat produces a coaching response for the given prompt and
// conversation history. History-bearing requests bypass the cache since
// the same prompt can mean different things mid-conversation.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body", h.logger)
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "prompt is required", h.logger)
		return
	}

	text := h.coach.Respond(r.Context(), prompt, req.History)
	writeJSON(w, http.StatusOK, ChatResponse{Text: text}, h.logger)
}

// handleQuickChat answers a one-shot prompt from the query string.
// Served from the response cache when a previous identical prompt was
// answered; unavailability apologies are never cached.
func (h *ChatHandler) handleQuickChat(w http.ResponseWriter, r *http.Request) {
	prompt := strings.TrimSpace(r.URL.Query().Get("prompt"))
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "prompt query parameter is required", h.logger)
		return
	}

	if h.cache != nil {
		if text, ok := h.cache.Get(prompt); ok {
			writeJSON(w, http.StatusOK, ChatResponse{Text: text, Cached: true}, h.logger)
			return
		}
	}

	text := h.coach.Respond(r.Context(), prompt, nil)
	if h.cache != nil && text != coach.UnavailableMessage {
		h.cache.Set(prompt, text)
	}
	writeJSON(w, http.StatusOK, ChatResponse{Text: text}, h.logger)
}
