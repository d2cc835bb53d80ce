package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/expensetrack/internal/registry"
	"github.com/rumor-ml/expensetrack/internal/rules"
	"github.com/rumor-ml/expensetrack/internal/store"
)

type stubVerifier struct {
	uid string
}

func (s *stubVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if idToken != "valid" {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: s.uid}, nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	engine, err := rules.LoadEmbedded()
	require.NoError(t, err)

	return New(st, registry.New(), engine, &stubVerifier{uid: "user-9"}, "http://localhost:5173").Handler()
}

func TestHealthNeedsNoAuth(t *testing.T) {
	handler := newTestServer(t)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
}

func TestAPIRejectsMissingToken(t *testing.T) {
	handler := newTestServer(t)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/accounts", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIRejectsInvalidToken(t *testing.T) {
	handler := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/accounts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIScopesRequestToTokenUser(t *testing.T) {
	handler := newTestServer(t)
	req := httptest.NewRequest("GET", "/api/accounts", nil)
	req.Header.Set("Authorization", "Bearer valid")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightBypassesAuth(t *testing.T) {
	handler := newTestServer(t)
	req := httptest.NewRequest("OPTIONS", "/api/accounts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
