package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-wallet-api/internal/application/verification"
	"github.com/go-wallet-api/internal/dedup"
	"github.com/go-wallet-api/internal/domain"
	"github.com/go-wallet-api/internal/pkg/validate"
	"github.com/go-wallet-api/internal/transport/http/middleware"
)

// EmailChangeHandler handles the three-step email-change protocol.
type EmailChangeHandler struct {
	svc  verification.Service
	gate *dedup.Gate
}

func NewEmailChangeHandler(svc verification.Service, gate *dedup.Gate) *EmailChangeHandler {
	return &EmailChangeHandler{svc: svc, gate: gate}
}

func (h *EmailChangeHandler) admit(w http.ResponseWriter, key string) (func(), bool) {
	admitted, retryAfter := h.gate.Begin(key)
	if !admitted {
		httpError(w, &domain.RetryAfterError{Seconds: retryAfter})
		return func() {}, false
	}
	return func() { h.gate.End(key) }, true
}

func (h *EmailChangeHandler) Request(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.EmailChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	release, ok := h.admit(w, "email-change:"+identity.PhoneNumber)
	if !ok {
		return
	}
	defer release()

	if err := h.svc.RequestEmailChange(r.Context(), identity.PhoneNumber, req.NewEmail); err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "email change requested; verify your phone to continue", nil)
}

func (h *EmailChangeHandler) VerifySMS(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	release, ok := h.admit(w, "email-change-sms:"+identity.PhoneNumber+":"+req.Code)
	if !ok {
		return
	}
	defer release()

	if err := h.svc.VerifyEmailChangeSMS(r.Context(), identity.PhoneNumber, req.Code); err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "phone verified; a code was sent to your new email", nil)
}

func (h *EmailChangeHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	release, ok := h.admit(w, "email-change-email:"+identity.PhoneNumber+":"+req.Code)
	if !ok {
		return
	}
	defer release()

	newEmail, err := h.svc.VerifyEmailChangeEmail(r.Context(), identity.PhoneNumber, req.Code)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "email change completed", map[string]string{"new_email": newEmail})
}
