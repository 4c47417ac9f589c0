package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-wallet-api/internal/domain"
	"github.com/go-wallet-api/internal/phone"
	"github.com/go-wallet-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// AccountStore is the minimal account persistence surface the service needs.
type AccountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, phoneNumber string) (*domain.Account, error)
	Exists(ctx context.Context, phoneNumber string) (bool, error)
}

// TokenSigner issues bearer tokens for an account.
type TokenSigner interface {
	Sign(accountID, phoneNumber string, smsVerified, emailVerified, fullyVerified bool) (string, error)
}

type Service interface {
	Exists(ctx context.Context, rawPhone string) (bool, error)
	Create(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, string, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.Account, string, error)
	Profile(ctx context.Context, phoneNumber string) (*domain.Account, error)
}

type service struct {
	accounts AccountStore
	signer   TokenSigner
}

func NewService(accounts AccountStore, signer TokenSigner) Service {
	return &service{accounts: accounts, signer: signer}
}

func (s *service) Exists(ctx context.Context, rawPhone string) (bool, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return false, err
	}
	return s.accounts.Exists(ctx, normalized)
}

// Create provisions an account for a phone number that has just passed SMS
// verification. The client sequence is send-verification → verify-code →
// create, so the account starts with sms_verified=true and creation does
// not re-verify. Phone uniqueness is enforced by the store's conditional
// write.
func (s *service) Create(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, string, error) {
	normalized, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash pin: %w", err)
	}

	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:                   id.New(),
		PhoneNumber:                 normalized,
		PINHash:                     string(hash),
		SMSVerified:                 true,
		EmailChangeVerificationStep: domain.EmailChangeNone,
		KYCStatus:                   domain.KYCNotSubmitted,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}
	a.FullyVerified = a.Fully()

	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, "", err
	}

	token, err := s.signer.Sign(a.AccountID, a.PhoneNumber, a.SMSVerified, a.EmailVerified, a.FullyVerified)
	if err != nil {
		return nil, "", err
	}
	return a, token, nil
}

// Login authenticates with phone + PIN and issues a bearer token carrying
// the account's current verification flags. No state is mutated.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Account, string, error) {
	normalized, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return nil, "", err
	}

	a, err := s.accounts.Get(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("no account for phone: %w", domain.ErrNotFound)
		}
		return nil, "", err
	}
	if !a.SMSVerified {
		return nil, "", fmt.Errorf("phone not verified: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PINHash), []byte(req.PIN)); err != nil {
		return nil, "", fmt.Errorf("wrong pin: %w", domain.ErrUnauthorized)
	}

	token, err := s.signer.Sign(a.AccountID, a.PhoneNumber, a.SMSVerified, a.EmailVerified, a.FullyVerified)
	if err != nil {
		return nil, "", err
	}
	return a, token, nil
}

func (s *service) Profile(ctx context.Context, phoneNumber string) (*domain.Account, error) {
	return s.accounts.Get(ctx, phoneNumber)
}
