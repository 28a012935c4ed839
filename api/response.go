package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/liftwise/liftwise/internal/log"
)

// writeJSON writes a JSON response with the given status code.
// The payload is encoded to a buffer first so an encoding failure can
// still produce a clean 500 instead of a truncated body.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		if logger != nil {
			logger.Error("failed to encode JSON response", "error", err)
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err string, message string, logger log.Logger) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message}, logger)
}
