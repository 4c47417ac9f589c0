package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-wallet-api/internal/config"
	"github.com/go-wallet-api/internal/domain"
	jwtinfra "github.com/go-wallet-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Get(ctx context.Context, phoneNumber string) (*domain.Account, error) {
	args := m.Called(ctx, phoneNumber)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func testProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private_key.pem")
	pubPath := filepath.Join(dir, "public_key.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o600))

	provider, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         time.Hour,
	})
	require.NoError(t, err)
	return provider
}

const phone1 = "+639171234567"

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/profile", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuth_MissingHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	Auth(testProvider(t), &mockResolver{})(okHandler(new(bool))).ServeHTTP(rec, authedRequest(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_GarbageToken(t *testing.T) {
	rec := httptest.NewRecorder()
	Auth(testProvider(t), &mockResolver{})(okHandler(new(bool))).ServeHTTP(rec, authedRequest("not.a.jwt"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// A store outage during the account lookup is not a credential failure.
func TestAuth_StoreOutageIs503(t *testing.T) {
	provider := testProvider(t)
	token, err := provider.Sign("acc-1", phone1, true, false, false)
	require.NoError(t, err)

	resolver := &mockResolver{}
	resolver.On("Get", mock.Anything, phone1).Return(nil, domain.ErrUnavailable)

	rec := httptest.NewRecorder()
	Auth(provider, resolver)(okHandler(new(bool))).ServeHTTP(rec, authedRequest(token))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuth_AccountGone(t *testing.T) {
	provider := testProvider(t)
	token, err := provider.Sign("acc-1", phone1, true, false, false)
	require.NoError(t, err)

	resolver := &mockResolver{}
	resolver.On("Get", mock.Anything, phone1).Return(nil, domain.ErrNotFound)

	rec := httptest.NewRecorder()
	Auth(provider, resolver)(okHandler(new(bool))).ServeHTTP(rec, authedRequest(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_UnverifiedPhoneRejected(t *testing.T) {
	provider := testProvider(t)
	token, err := provider.Sign("acc-1", phone1, true, false, false)
	require.NoError(t, err)

	resolver := &mockResolver{}
	resolver.On("Get", mock.Anything, phone1).Return(&domain.Account{
		AccountID:   "acc-1",
		PhoneNumber: phone1,
		SMSVerified: false,
	}, nil)

	rec := httptest.NewRecorder()
	Auth(provider, resolver)(okHandler(new(bool))).ServeHTTP(rec, authedRequest(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Identity must mirror the persisted account, not the snapshot frozen into
// the token. A token minted before email verification still unlocks
// email-gated routes once the account record says so.
func TestAuth_IdentityReflectsLiveAccountState(t *testing.T) {
	provider := testProvider(t)
	token, err := provider.Sign("acc-1", phone1, true, false, false)
	require.NoError(t, err)

	resolver := &mockResolver{}
	resolver.On("Get", mock.Anything, phone1).Return(&domain.Account{
		AccountID:     "acc-1",
		PhoneNumber:   phone1,
		SMSVerified:   true,
		EmailVerified: true,
		FullyVerified: true,
		KYCStatus:     domain.KYCApproved,
	}, nil)

	var got *domain.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	Auth(provider, resolver)(next).ServeHTTP(rec, authedRequest(token))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "acc-1", got.AccountID)
	assert.True(t, got.EmailVerified)
	assert.True(t, got.FullyVerified)
	assert.Equal(t, domain.KYCApproved, got.KYCStatus)
}
