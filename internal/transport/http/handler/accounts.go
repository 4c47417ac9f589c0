package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-wallet-api/internal/application/account"
	"github.com/go-wallet-api/internal/dedup"
	"github.com/go-wallet-api/internal/domain"
	"github.com/go-wallet-api/internal/phone"
	"github.com/go-wallet-api/internal/pkg/validate"
	"github.com/go-wallet-api/internal/transport/http/middleware"
)

// AccountHandler handles account provisioning and login endpoints.
type AccountHandler struct {
	svc  account.Service
	gate *dedup.Gate
}

func NewAccountHandler(svc account.Service, gate *dedup.Gate) *AccountHandler {
	return &AccountHandler{svc: svc, gate: gate}
}

func (h *AccountHandler) Exists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.svc.Exists(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", map[string]bool{"exists": exists})
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	normalized, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		httpError(w, err)
		return
	}

	key := "create-account:" + normalized
	admitted, retryAfter := h.gate.Begin(key)
	if !admitted {
		httpError(w, &domain.RetryAfterError{Seconds: retryAfter})
		return
	}
	defer h.gate.End(key)

	a, token, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "account created", map[string]interface{}{
		"account": a,
		"token":   token,
	})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	normalized, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		httpError(w, err)
		return
	}

	key := "login:" + normalized
	admitted, retryAfter := h.gate.Begin(key)
	if !admitted {
		httpError(w, &domain.RetryAfterError{Seconds: retryAfter})
		return
	}
	defer h.gate.End(key)

	a, token, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "login successful", map[string]interface{}{
		"account": a,
		"token":   token,
	})
}

func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	a, err := h.svc.Profile(r.Context(), identity.PhoneNumber)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", map[string]interface{}{"account": a})
}
