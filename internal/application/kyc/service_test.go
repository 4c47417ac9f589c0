package kyc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-wallet-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, phoneNumber string) (*domain.Account, error) {
	args := m.Called(ctx, phoneNumber)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) Update(ctx context.Context, phoneNumber string, updates map[string]interface{}) error {
	return m.Called(ctx, phoneNumber, updates).Error(0)
}

type mockDocumentStore struct{ mock.Mock }

func (m *mockDocumentStore) UploadBase64(ctx context.Context, key, b64Data string) (string, error) {
	args := m.Called(ctx, key, b64Data)
	return args.String(0), args.Error(1)
}

const phone1 = "+639171234567"

func TestSubmitDocument_MovesStatusToPending(t *testing.T) {
	as := &mockAccountStore{}
	ds := &mockDocumentStore{}
	as.On("Get", mock.Anything, phone1).Return(&domain.Account{
		AccountID:   "acc-1",
		PhoneNumber: phone1,
		KYCStatus:   domain.KYCNotSubmitted,
	}, nil)
	ds.On("UploadBase64", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "kyc/acc-1/") && strings.HasSuffix(key, ".jpg")
	}), "aGVsbG8=").Return("etag", nil)
	as.On("Update", mock.Anything, phone1, mock.MatchedBy(func(u map[string]interface{}) bool {
		key, _ := u["kyc_document_key"].(string)
		return u["kyc_status"] == domain.KYCPending && strings.HasPrefix(key, "kyc/acc-1/")
	})).Return(nil)

	svc := NewService(as, ds)
	err := svc.SubmitDocument(context.Background(), phone1, domain.SubmitKYCDocumentRequest{
		Filename: "passport.jpg",
		Data:     "aGVsbG8=",
	})

	require.NoError(t, err)
	as.AssertExpectations(t)
	ds.AssertExpectations(t)
}

func TestSubmitDocument_AllowedAfterRejection(t *testing.T) {
	as := &mockAccountStore{}
	ds := &mockDocumentStore{}
	as.On("Get", mock.Anything, phone1).Return(&domain.Account{
		AccountID:   "acc-1",
		PhoneNumber: phone1,
		KYCStatus:   domain.KYCRejected,
	}, nil)
	ds.On("UploadBase64", mock.Anything, mock.Anything, mock.Anything).Return("etag", nil)
	as.On("Update", mock.Anything, phone1, mock.Anything).Return(nil)

	svc := NewService(as, ds)
	err := svc.SubmitDocument(context.Background(), phone1, domain.SubmitKYCDocumentRequest{
		Filename: "retry.png",
		Data:     "aGVsbG8=",
	})
	require.NoError(t, err)
}

func TestSubmitDocument_RejectedWhileUnderReview(t *testing.T) {
	for _, status := range []string{domain.KYCPending, domain.KYCApproved} {
		as := &mockAccountStore{}
		ds := &mockDocumentStore{}
		as.On("Get", mock.Anything, phone1).Return(&domain.Account{
			PhoneNumber: phone1,
			KYCStatus:   status,
		}, nil)

		svc := NewService(as, ds)
		err := svc.SubmitDocument(context.Background(), phone1, domain.SubmitKYCDocumentRequest{
			Filename: "passport.jpg",
			Data:     "aGVsbG8=",
		})

		require.Error(t, err, status)
		assert.True(t, errors.Is(err, domain.ErrConflict), status)
		ds.AssertNotCalled(t, "UploadBase64", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestSubmitDocument_ExtensionFallback(t *testing.T) {
	as := &mockAccountStore{}
	ds := &mockDocumentStore{}
	as.On("Get", mock.Anything, phone1).Return(&domain.Account{
		AccountID:   "acc-1",
		PhoneNumber: phone1,
	}, nil)
	ds.On("UploadBase64", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasSuffix(key, ".bin")
	}), mock.Anything).Return("etag", nil)
	as.On("Update", mock.Anything, phone1, mock.Anything).Return(nil)

	svc := NewService(as, ds)
	err := svc.SubmitDocument(context.Background(), phone1, domain.SubmitKYCDocumentRequest{
		Filename: "noextension",
		Data:     "aGVsbG8=",
	})
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestSubmitDocument_UploadFailureLeavesStatusUntouched(t *testing.T) {
	as := &mockAccountStore{}
	ds := &mockDocumentStore{}
	as.On("Get", mock.Anything, phone1).Return(&domain.Account{
		AccountID:   "acc-1",
		PhoneNumber: phone1,
	}, nil)
	ds.On("UploadBase64", mock.Anything, mock.Anything, mock.Anything).Return("", domain.ErrUnavailable)

	svc := NewService(as, ds)
	err := svc.SubmitDocument(context.Background(), phone1, domain.SubmitKYCDocumentRequest{
		Filename: "passport.jpg",
		Data:     "aGVsbG8=",
	})

	require.Error(t, err)
	as.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatus(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, phone1).Return(&domain.Account{
		PhoneNumber: phone1,
		KYCStatus:   domain.KYCApproved,
	}, nil)

	svc := NewService(as, &mockDocumentStore{})
	status, err := svc.Status(context.Background(), phone1)

	require.NoError(t, err)
	assert.Equal(t, domain.KYCApproved, status)
}
