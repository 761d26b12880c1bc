package handler

import (
	"net/http"
	"strings"

	"github.com/xenking/microshop/internal/identity"
)

// requireUser authenticates the bearer token and stores the caller identity
// in the request context.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(authz, "Bearer ")
		if !ok || raw == "" {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		id, err := h.tokens.VerifyAccess(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(identity.WithContext(r.Context(), id)))
	})
}

// requireAdmin rejects callers without the admin claim. Must run after
// requireUser.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.FromContext(r.Context())
		if !ok || !id.Admin {
			writeError(w, r, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}
