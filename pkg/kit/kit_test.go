package kit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestIPRateLimiter_PerIPBuckets(t *testing.T) {
	l := NewIPRateLimiter(60, 2)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.allow("10.0.0.1", now))
	assert.True(t, l.allow("10.0.0.1", now))
	assert.False(t, l.allow("10.0.0.1", now))
	assert.True(t, l.allow("10.0.0.2", now))

	assert.True(t, l.allow("10.0.0.1", now.Add(time.Second)))
}

func TestIPRateLimiter_ForgetsIdleVisitors(t *testing.T) {
	l := NewIPRateLimiter(60, 1)
	now := time.Unix(1_700_000_000, 0)

	l.allow("10.0.0.1", now)
	l.allow("10.0.0.2", now.Add(visitorTTL+2*time.Second))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.visitors, "10.0.0.1")
	assert.Contains(t, l.visitors, "10.0.0.2")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}

func TestWriteSuccess_PayloadCannotOverrideEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, http.StatusCreated, "Product added", map[string]any{
		"product": map[string]any{"id": 1},
		"success": false,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"message":"Product added","product":{"id":1}}`, rec.Body.String())
}

func TestRecoverer_WritesJSON500(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "server error", body.Error)
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/any/path", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChiRoutePatternOrPath(t *testing.T) {
	var got []string
	label := func(_ http.ResponseWriter, r *http.Request) {
		got = append(got, ChiRoutePatternOrPath(r))
	}

	r := chi.NewRouter()
	r.Get("/api/products/{id}", label)
	r.NotFound(label)

	for _, path := range []string{"/api/products/7", "/css/site.css"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []string{"/api/products/{id}", unmatchedRoute}, got)
}

func TestMetricsAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	cases := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{name: "disabled", token: "", header: "Bearer x", want: http.StatusForbidden},
		{name: "missing", token: "t", header: "", want: http.StatusForbidden},
		{name: "empty bearer", token: "t", header: "Bearer ", want: http.StatusForbidden},
		{name: "wrong scheme", token: "t", header: "Basic t", want: http.StatusForbidden},
		{name: "wrong", token: "t", header: "Bearer nope", want: http.StatusForbidden},
		{name: "right", token: "t", header: "Bearer t", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			MetricsAuth(tc.token, zap.New(core))(ok).ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusOK {
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.FilterMessage("metrics scrape denied").Len())
			assert.Equal(t, "192.0.2.1", logs.All()[0].ContextMap()["ip"])
		})
	}
}

func TestWriteError_DefaultsMessageAndDisablesCaching(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/api/products/9", nil), http.StatusNotFound, "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}
