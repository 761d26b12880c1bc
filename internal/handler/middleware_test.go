package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/microshop/internal/identity"
	"github.com/xenking/microshop/internal/token"
)

func authProbe(t *testing.T) (*Handler, http.Handler, *identity.Identity) {
	t.Helper()

	h := New(nil, nil, nil, token.NewIssuer([]byte("test-secret"), time.Hour))

	var seen identity.Identity
	probe := h.requireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, probe, &seen
}

func TestRequireUser_NoHeader(t *testing.T) {
	_, probe, _ := authProbe(t)

	rec := httptest.NewRecorder()
	probe.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireUser_MalformedHeader(t *testing.T) {
	_, probe, _ := authProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	rec := httptest.NewRecorder()
	probe.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireUser_BadToken(t *testing.T) {
	_, probe, _ := authProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := httptest.NewRecorder()
	probe.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireUser_ValidToken(t *testing.T) {
	h, probe, seen := authProbe(t)

	raw, err := h.tokens.Access(identity.Identity{UserID: 7, Email: "a@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)

	rec := httptest.NewRecorder()
	probe.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(7), seen.UserID)
	assert.Equal(t, "a@example.com", seen.Email)
}

func TestRequireAdmin(t *testing.T) {
	probe := requireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	// No identity in context.
	rec := httptest.NewRecorder()
	probe.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Non-admin identity.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(identity.WithContext(req.Context(), identity.Identity{UserID: 7}))
	rec = httptest.NewRecorder()
	probe.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin identity.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(identity.WithContext(req.Context(), identity.Identity{UserID: 7, Admin: true}))
	rec = httptest.NewRecorder()
	probe.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
