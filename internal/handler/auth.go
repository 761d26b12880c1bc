package handler

import (
	"net/http"
	"net/mail"

	"github.com/go-faster/errors"

	"github.com/xenking/microshop/internal/domain/user"
	"github.com/xenking/microshop/internal/identity"
	"github.com/xenking/microshop/internal/token"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type meResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Admin    bool   `json:"is_admin"`
	Verified bool   `json:"is_verified"`
}

type okResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid email")
		return
	}

	err := h.accounts.Register(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, okResponse{OK: true, Message: "Registered. Please verify your email."})
	case errors.Is(err, user.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, "email already registered")
	case errors.Is(err, user.ErrPasswordTooLong):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		internalError(w, r, err)
	}
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" && r.Method == http.MethodPost {
		var body struct {
			Token string `json:"token"`
		}
		if err := decode(r, &body); err == nil {
			raw = body.Token
		}
	}
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, "missing token")
		return
	}

	err := h.accounts.VerifyEmail(r.Context(), raw)
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, okResponse{OK: true})
	case errors.Is(err, token.ErrInvalidToken):
		writeError(w, r, http.StatusBadRequest, "invalid or expired token")
	case errors.Is(err, user.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	default:
		internalError(w, r, err)
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	access, _, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, tokenResponse{AccessToken: access, TokenType: "bearer"})
	case errors.Is(err, user.ErrBadCredential):
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	default:
		internalError(w, r, err)
	}
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	u, err := h.accounts.Get(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "user not found")
			return
		}
		internalError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, meResponse{
		ID:       u.ID,
		Email:    u.Email,
		Admin:    u.Admin,
		Verified: u.Verified,
	})
}
