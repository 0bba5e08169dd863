package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/service-desk-routing/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-routing/internal/auth"
)

const testSecret = "handler-test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter mounts a handler's routes behind the JWT middleware, the way
// main wires them under /api/v1.
func newTestRouter(prefix string, register func(chi.Router)) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Group(func(r chi.Router) {
		r.Use(mw.JWTMiddleware(auth.NewTokenManager(testSecret, time.Hour)))
		r.Route(prefix, register)
	})
	return r
}

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.NewTokenManager(testSecret, time.Hour).GenerateToken("operator-1", "Test Operator", role)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, h stdhttp.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&out))
	return out
}
