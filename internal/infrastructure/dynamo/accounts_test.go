package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-wallet-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// email is the email-index GSI hash key and DynamoDB rejects PutItem when
// an index-key attribute is an empty string. A fresh account has no email
// yet, so the attribute must be omitted from the item, not written as "".
func TestMarshalAccount_OmitsUnboundEmailAttributes(t *testing.T) {
	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:                   "01J0000000000000000000TEST",
		PhoneNumber:                 "+639171234567",
		PINHash:                     "$2a$10$hash",
		SMSVerified:                 true,
		EmailChangeVerificationStep: domain.EmailChangeNone,
		KYCStatus:                   domain.KYCNotSubmitted,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}

	item, err := attributevalue.MarshalMap(a)
	require.NoError(t, err)

	_, hasEmail := item["email"]
	assert.False(t, hasEmail, "empty email must not be marshaled")
	_, hasPending := item["pending_email"]
	assert.False(t, hasPending, "empty pending_email must not be marshaled")

	// Key and counter attributes are still present.
	assert.Contains(t, item, "phone_number")
	assert.Contains(t, item, "verification_attempts")
}

func TestMarshalAccount_KeepsBoundEmail(t *testing.T) {
	a := &domain.Account{
		PhoneNumber: "+639171234567",
		Email:       "a@x.com",
	}
	item, err := attributevalue.MarshalMap(a)
	require.NoError(t, err)

	s, ok := item["email"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", s.Value)
}

func TestBuildUpdateExpr(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{
		"email_verified": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", expr)
	assert.Equal(t, map[string]string{"#f0": "email_verified"}, names)
	assert.Contains(t, values, ":v0")

	_, _, _, err = buildUpdateExpr(map[string]interface{}{})
	assert.Error(t, err)
}
