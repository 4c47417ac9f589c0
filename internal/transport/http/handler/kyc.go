package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-wallet-api/internal/application/kyc"
	"github.com/go-wallet-api/internal/dedup"
	"github.com/go-wallet-api/internal/domain"
	"github.com/go-wallet-api/internal/pkg/validate"
	"github.com/go-wallet-api/internal/transport/http/middleware"
)

// KYCHandler handles identity-document submission and status lookup.
type KYCHandler struct {
	svc  kyc.Service
	gate *dedup.Gate
}

func NewKYCHandler(svc kyc.Service, gate *dedup.Gate) *KYCHandler {
	return &KYCHandler{svc: svc, gate: gate}
}

func (h *KYCHandler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.SubmitKYCDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := "kyc-doc:" + identity.PhoneNumber
	admitted, retryAfter := h.gate.Begin(key)
	if !admitted {
		httpError(w, &domain.RetryAfterError{Seconds: retryAfter})
		return
	}
	defer h.gate.End(key)

	if err := h.svc.SubmitDocument(r.Context(), identity.PhoneNumber, req); err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, "document submitted for review", map[string]string{
		"kyc_status": domain.KYCPending,
	})
}

func (h *KYCHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	status, err := h.svc.Status(r.Context(), identity.PhoneNumber)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", map[string]string{"kyc_status": status})
}
