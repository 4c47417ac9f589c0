package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-wallet-api/internal/application/verification"
	"github.com/go-wallet-api/internal/dedup"
	"github.com/go-wallet-api/internal/domain"
	"github.com/go-wallet-api/internal/phone"
	"github.com/go-wallet-api/internal/pkg/validate"
	"github.com/go-wallet-api/internal/transport/http/middleware"
)

// VerificationHandler handles SMS and email verification endpoints.
type VerificationHandler struct {
	svc  verification.Service
	gate *dedup.Gate
}

func NewVerificationHandler(svc verification.Service, gate *dedup.Gate) *VerificationHandler {
	return &VerificationHandler{svc: svc, gate: gate}
}

// admit registers key with the dedup gate, writing the 429 itself when an
// identical request is already in flight. Callers must defer the returned
// release (a no-op func when not admitted).
func (h *VerificationHandler) admit(w http.ResponseWriter, key string) (func(), bool) {
	admitted, retryAfter := h.gate.Begin(key)
	if !admitted {
		httpError(w, &domain.RetryAfterError{Seconds: retryAfter})
		return func() {}, false
	}
	return func() { h.gate.End(key) }, true
}

func (h *VerificationHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	var req domain.SendVerificationRequest
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

	release, ok := h.admit(w, "send-sms:"+normalized)
	if !ok {
		return
	}
	defer release()

	receipt, err := h.svc.SendSMSVerification(r.Context(), normalized)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "verification code sent", map[string]string{
		"status":     "pending",
		"to":         receipt.To,
		"message_id": receipt.MessageID,
	})
}

func (h *VerificationHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyCodeRequest
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

	release, ok := h.admit(w, "verify-sms:"+normalized+":"+req.Code)
	if !ok {
		return
	}
	defer release()

	if err := h.svc.VerifySMSCode(r.Context(), normalized, req.Code); err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "phone verified", map[string]bool{"verified": true})
}

func (h *VerificationHandler) AddEmail(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.AddEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	release, ok := h.admit(w, "add-email:"+identity.PhoneNumber)
	if !ok {
		return
	}
	defer release()

	a, err := h.svc.AddEmail(r.Context(), identity.PhoneNumber, req.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "email saved", map[string]interface{}{"account": a})
}

func (h *VerificationHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	release, ok := h.admit(w, "send-email:"+identity.PhoneNumber)
	if !ok {
		return
	}
	defer release()

	receipt, err := h.svc.SendEmailVerification(r.Context(), identity.PhoneNumber)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "verification code sent", map[string]string{
		"status":     "pending",
		"to":         receipt.To,
		"message_id": receipt.MessageID,
	})
}

func (h *VerificationHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
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

	release, ok := h.admit(w, "verify-email:"+identity.PhoneNumber+":"+req.Code)
	if !ok {
		return
	}
	defer release()

	if err := h.svc.VerifyEmail(r.Context(), identity.PhoneNumber, req.Code); err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "email verified", map[string]bool{"verified": true})
}
