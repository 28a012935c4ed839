package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsHandler(t *testing.T) {
	t.Run("reports configuration with cache", func(t *testing.T) {
		rc := newTestCache(t)
		rc.Set("question", "answer")

		mux := http.NewServeMux()
		NewStatsHandler(&fakeCoach{}, rc).RegisterRoutes(mux)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp StatsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ollama/gemma3:latest", resp.Model)
		assert.Equal(t, "ollama/llama3.2:latest", resp.FallbackModel)
		assert.True(t, resp.AgentAvailable)
		assert.False(t, resp.RetrieverAvailable)
		assert.True(t, resp.CacheEnabled)
		assert.Equal(t, 1, resp.CachedResponses)
	})

	t.Run("reports disabled cache", func(t *testing.T) {
		mux := http.NewServeMux()
		NewStatsHandler(&fakeCoach{}, nil).RegisterRoutes(mux)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp StatsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.CacheEnabled)
		assert.Zero(t, resp.CachedResponses)
	})
}
