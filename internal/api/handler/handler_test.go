package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/infra/auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// serve 以 chi 掛上單一路由，讓 URLParam 可以解析
func serve(t *testing.T, method, pattern, target string, h http.HandlerFunc, identity *auth.Identity, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	router := chi.NewRouter()
	router.MethodFunc(method, pattern, h)
	return serveWithHeader(t, router, method, target, body, identity, nil)
}

func serveWithHeader(t *testing.T, router http.Handler, method, target string, body any, identity *auth.Identity, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func newIdentity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New(), Email: "buyer@example.com"}
}

type fakeChecker struct {
	status db.ConnectionStatus
}

func (f fakeChecker) CheckConnections(ctx context.Context) db.ConnectionStatus {
	return f.status
}

func TestHealthHandler(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	testCases := []struct {
		name       string
		status     db.ConnectionStatus
		wantCode   int
		wantResult bool
	}{
		{"all up", db.ConnectionStatus{Orders: true, Products: true, Users: true}, http.StatusOK, true},
		{"users down", db.ConnectionStatus{Orders: true, Products: true}, http.StatusServiceUnavailable, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(fakeChecker{status: tc.status})
			h.nowFn = func() time.Time { return fixed }

			rec, env := serve(t, http.MethodGet, "/health", "/health", h.Health, nil, nil)
			require.Equal(t, tc.wantCode, rec.Code)
			require.Equal(t, tc.wantResult, env.Success)

			var got HealthResponse
			require.NoError(t, json.Unmarshal(env.Data, &got))
			require.Equal(t, tc.status, got.Databases)
			require.True(t, fixed.Equal(got.Timestamp))
		})
	}
}

func TestPageQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil)
	page := pageQuery(req)
	require.Equal(t, 3, page.Page)
	require.Equal(t, 100, page.Limit)

	req = httptest.NewRequest(http.MethodGet, "/?page=abc", nil)
	page = pageQuery(req)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 20, page.Limit)
}
