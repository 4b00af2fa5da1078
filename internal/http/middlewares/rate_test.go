package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ssogate/internal/http/middlewares"
	"github.com/dropDatabas3/ssogate/internal/rate"
)

func TestWithRateLimit_BlocksAfterMax(t *testing.T) {
	limiter := rate.NewMemoryLimiter(2, time.Minute)
	h := middlewares.WithRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/providers", nil)
		req.RemoteAddr = "10.0.0.1:50000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusNoContent, do().Code)
	require.Equal(t, http.StatusNoContent, do().Code)

	rec := do()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")
}

func TestWithRateLimit_ForwardedForWins(t *testing.T) {
	limiter := rate.NewMemoryLimiter(1, time.Minute)
	h := middlewares.WithRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(xff string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/providers", nil)
		req.RemoteAddr = "10.0.0.1:50000"
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusNoContent, do("203.0.113.7, 10.0.0.1").Code)
	require.Equal(t, http.StatusTooManyRequests, do("203.0.113.7, 10.0.0.1").Code)

	// Different client behind the same proxy is counted separately.
	require.Equal(t, http.StatusNoContent, do("203.0.113.9").Code)
}
