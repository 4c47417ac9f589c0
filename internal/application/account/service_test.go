package account

import (
	"context"
	"errors"
	"testing"

	"github.com/go-wallet-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Create(ctx context.Context, a *domain.Account) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAccountStore) Get(ctx context.Context, phoneNumber string) (*domain.Account, error) {
	args := m.Called(ctx, phoneNumber)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) Exists(ctx context.Context, phoneNumber string) (bool, error) {
	args := m.Called(ctx, phoneNumber)
	return args.Bool(0), args.Error(1)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(accountID, phoneNumber string, smsVerified, emailVerified, fullyVerified bool) (string, error) {
	args := m.Called(accountID, phoneNumber, smsVerified, emailVerified, fullyVerified)
	return args.String(0), args.Error(1)
}

// --- Exists ---

func TestExists_NormalizesBeforeLookup(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Exists", mock.Anything, "+639171234567").Return(true, nil)

	svc := NewService(as, nil)
	exists, err := svc.Exists(context.Background(), "09171234567")

	require.NoError(t, err)
	assert.True(t, exists)
	as.AssertExpectations(t)
}

func TestExists_BadPhone(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.Exists(context.Background(), "12345")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- Create ---

func TestCreate_HappyPath(t *testing.T) {
	as := &mockAccountStore{}
	sg := &mockSigner{}
	as.On("Create", mock.Anything, mock.AnythingOfType("*domain.Account")).Return(nil)
	sg.On("Sign", mock.Anything, "+639171234567", true, false, false).Return("tok", nil)

	svc := NewService(as, sg)
	a, token, err := svc.Create(context.Background(), domain.CreateAccountRequest{
		PhoneNumber: "09171234567",
		PIN:         "123456",
	})

	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "+639171234567", a.PhoneNumber)
	assert.True(t, a.SMSVerified)
	assert.False(t, a.EmailVerified)
	assert.False(t, a.FullyVerified)
	assert.Equal(t, domain.EmailChangeNone, a.EmailChangeVerificationStep)
	assert.Equal(t, domain.KYCNotSubmitted, a.KYCStatus)
	assert.NotEmpty(t, a.AccountID)

	// PIN is stored hashed, never in the clear.
	assert.NotEqual(t, "123456", a.PINHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PINHash), []byte("123456")))
	as.AssertExpectations(t)
}

func TestCreate_DuplicatePhone(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	svc := NewService(as, nil)
	_, _, err := svc.Create(context.Background(), domain.CreateAccountRequest{
		PhoneNumber: "09171234567",
		PIN:         "123456",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

// --- Login ---

func testAccount(t *testing.T, pin string) *domain.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &domain.Account{
		AccountID:   "acc1",
		PhoneNumber: "+639171234567",
		PINHash:     string(hash),
		SMSVerified: true,
	}
}

func TestLogin_HappyPath(t *testing.T) {
	as := &mockAccountStore{}
	sg := &mockSigner{}
	as.On("Get", mock.Anything, "+639171234567").Return(testAccount(t, "123456"), nil)
	sg.On("Sign", "acc1", "+639171234567", true, false, false).Return("tok", nil)

	svc := NewService(as, sg)
	a, token, err := svc.Login(context.Background(), domain.LoginRequest{
		PhoneNumber: "+639171234567",
		PIN:         "123456",
	})

	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.True(t, a.SMSVerified)
}

func TestLogin_WrongPIN(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "+639171234567").Return(testAccount(t, "123456"), nil)

	svc := NewService(as, nil)
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		PhoneNumber: "+639171234567",
		PIN:         "654321",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_UnverifiedPhone(t *testing.T) {
	a := testAccount(t, "123456")
	a.SMSVerified = false
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "+639171234567").Return(a, nil)

	svc := NewService(as, nil)
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		PhoneNumber: "+639171234567",
		PIN:         "123456",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_NoAccount(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "+639171234567").Return(nil, domain.ErrNotFound)

	svc := NewService(as, nil)
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		PhoneNumber: "+639171234567",
		PIN:         "123456",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
