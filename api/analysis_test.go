package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftwise/liftwise/internal/log"
)

func newAnalysisMux(fc *fakeCoach) *http.ServeMux {
	mux := http.NewServeMux()
	NewAnalysisHandler(fc, log.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestAnalysisHandler(t *testing.T) {
	t.Run("answers in direct mode", func(t *testing.T) {
		fc := &fakeCoach{response: "your sleep is trending down"}
		mux := newAnalysisMux(fc)

		body := `{"sleep_minutes":[420,480],"step_counts":[8500,9200]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(body))
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, fc.directCalls)

		prompt := fc.lastPrompt()
		assert.Contains(t, prompt, "Day 1: 420 minutes (7.0 hours)")
		assert.Contains(t, prompt, "Day 2: 480 minutes (8.0 hours)")
		assert.Contains(t, prompt, "Day 2: 9200 steps")
		assert.JSONEq(t, `{"text":"your sleep is trending down"}`, w.Body.String())
	})

	t.Run("custom question is appended", func(t *testing.T) {
		fc := &fakeCoach{response: "ok"}
		mux := newAnalysisMux(fc)

		body := `{"step_counts":[4000],"question":"Am I walking enough?"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(body))
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasSuffix(fc.lastPrompt(), "Am I walking enough?"))
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		fc := &fakeCoach{}
		mux := newAnalysisMux(fc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(`{}`))
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, fc.callCount())
	})

	t.Run("rejects oversized series", func(t *testing.T) {
		fc := &fakeCoach{}
		mux := newAnalysisMux(fc)

		var b strings.Builder
		b.WriteString(`{"step_counts":[`)
		for i := 0; i <= maxAnalysisDays; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("1000")
		}
		b.WriteString(`]}`)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(b.String()))
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, fc.callCount())
	})
}

func TestAnalysisPrompt_DefaultQuestion(t *testing.T) {
	prompt := analysisPrompt(AnalysisRequest{SleepMinutes: []int{390}})

	assert.Contains(t, prompt, "Sleep per day:")
	assert.NotContains(t, prompt, "Steps per day:")
	assert.Contains(t, prompt, "Summarize the trends")
}
