package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftwise/liftwise/internal/cache"
	"github.com/liftwise/liftwise/internal/coach"
	"github.com/liftwise/liftwise/internal/log"
)

func newChatMux(fc *fakeCoach, rc *cache.Cache) *http.ServeMux {
	mux := http.NewServeMux()
	NewChatHandler(fc, rc, log.NewNop()).RegisterRoutes(mux)
	return mux
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(t.TempDir(), log.NewNop())
	require.NoError(t, err)
	return c
}

func TestChatHandler_Post(t *testing.T) {
	t.Run("returns coach response", func(t *testing.T) {
		fc := &fakeCoach{response: "eat more protein"}
		mux := newChatMux(fc, nil)

		body := `{"prompt":"how much protein do I need?"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp ChatResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "eat more protein", resp.Text)
		assert.False(t, resp.Cached)
		assert.Equal(t, "how much protein do I need?", fc.lastPrompt())
	})

	t.Run("forwards history", func(t *testing.T) {
		fc := &fakeCoach{response: "ok"}
		mux := newChatMux(fc, nil)

		body := `{"prompt":"and now?","history":[{"role":"user","text":"hi"},{"role":"coach","text":"hello"}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, fc.histories, 1)
		require.Len(t, fc.histories[0], 2)
		assert.Equal(t, coach.RoleUser, fc.histories[0][0].Role)
		assert.Equal(t, "hello", fc.histories[0][1].Text)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		fc := &fakeCoach{}
		mux := newChatMux(fc, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{not json"))
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, fc.callCount())
	})

	t.Run("rejects blank prompt", func(t *testing.T) {
		fc := &fakeCoach{}
		mux := newChatMux(fc, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"prompt":"   "}`))
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, fc.callCount())
	})
}

func TestChatHandler_Get(t *testing.T) {
	t.Run("requires prompt parameter", func(t *testing.T) {
		fc := &fakeCoach{}
		mux := newChatMux(fc, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("caches fresh answers", func(t *testing.T) {
		fc := &fakeCoach{response: "squat twice a week"}
		rc := newTestCache(t)
		mux := newChatMux(fc, rc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/chat?prompt=squat+frequency", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, fc.callCount())
		assert.Equal(t, 1, rc.Size())

		// Second identical request is served from the cache.
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chat?prompt=squat+frequency", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp ChatResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "squat twice a week", resp.Text)
		assert.True(t, resp.Cached)
		assert.Equal(t, 1, fc.callCount())
	})

	t.Run("does not cache unavailability apologies", func(t *testing.T) {
		fc := &fakeCoach{response: coach.UnavailableMessage}
		rc := newTestCache(t)
		mux := newChatMux(fc, rc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/chat?prompt=hello", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, rc.Size())
	})

	t.Run("works without a cache", func(t *testing.T) {
		fc := &fakeCoach{response: "fine"}
		mux := newChatMux(fc, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/chat?prompt=hello", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, fc.callCount())
	})
}
