package kyc

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/go-wallet-api/internal/domain"
	"github.com/go-wallet-api/internal/pkg/id"
)

// AccountStore is the account persistence surface the KYC flow needs.
type AccountStore interface {
	Get(ctx context.Context, phoneNumber string) (*domain.Account, error)
	Update(ctx context.Context, phoneNumber string, updates map[string]interface{}) error
}

// DocumentStore uploads identity documents.
type DocumentStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
}

type Service interface {
	SubmitDocument(ctx context.Context, phoneNumber string, req domain.SubmitKYCDocumentRequest) error
	Status(ctx context.Context, phoneNumber string) (string, error)
}

type service struct {
	accounts  AccountStore
	documents DocumentStore
}

func NewService(accounts AccountStore, documents DocumentStore) Service {
	return &service{accounts: accounts, documents: documents}
}

// SubmitDocument stores the uploaded document and moves the review status
// to pending. Resubmission is allowed after a rejection, not while a
// review is open or already approved.
func (s *service) SubmitDocument(ctx context.Context, phoneNumber string, req domain.SubmitKYCDocumentRequest) error {
	a, err := s.accounts.Get(ctx, phoneNumber)
	if err != nil {
		return err
	}
	switch a.KYCStatus {
	case domain.KYCPending:
		return fmt.Errorf("document already under review: %w", domain.ErrConflict)
	case domain.KYCApproved:
		return fmt.Errorf("identity already approved: %w", domain.ErrConflict)
	}

	ext := strings.TrimPrefix(path.Ext(req.Filename), ".")
	if ext == "" {
		ext = "bin"
	}
	key := fmt.Sprintf("kyc/%s/%s.%s", a.AccountID, id.New(), ext)
	if _, err := s.documents.UploadBase64(ctx, key, req.Data); err != nil {
		return err
	}

	return s.accounts.Update(ctx, phoneNumber, map[string]interface{}{
		"kyc_status":       domain.KYCPending,
		"kyc_document_key": key,
	})
}

func (s *service) Status(ctx context.Context, phoneNumber string) (string, error) {
	a, err := s.accounts.Get(ctx, phoneNumber)
	if err != nil {
		return "", err
	}
	return a.KYCStatus, nil
}
