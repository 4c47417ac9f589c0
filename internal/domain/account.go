package domain

import "time"

// KYC review status. Independent axis — an account can be fully verified
// (phone + email) without ever submitting documents.
const (
	KYCNotSubmitted = "not_submitted"
	KYCPending      = "pending"
	KYCApproved     = "approved"
	KYCRejected     = "rejected"
)

// Email-change sub-state. Strictly linear: none → sms_pending → email_pending,
// then folding back to none when the new email is proven. The "completed"
// value exists for wire compatibility with older clients but is never
// persisted — the finalize write goes straight back to none.
const (
	EmailChangeNone         = "none"
	EmailChangeSMSPending   = "sms_pending"
	EmailChangeEmailPending = "email_pending"
	EmailChangeCompleted    = "completed"
)

// Account is the persisted wallet account. The normalized phone number is
// the partition key; email is looked up through a GSI when bound.
type Account struct {
	AccountID   string `json:"id" dynamodbav:"account_id"`
	PhoneNumber string `json:"phone_number" dynamodbav:"phone_number"`
	PINHash     string `json:"-" dynamodbav:"pin_hash"`

	// omitempty keeps unbound addresses out of the item entirely: email is
	// the email-index GSI hash key and DynamoDB rejects writes that set an
	// index-key attribute to the empty string.
	Email        string `json:"email,omitempty" dynamodbav:"email,omitempty"`
	PendingEmail string `json:"pending_email,omitempty" dynamodbav:"pending_email,omitempty"`

	SMSVerified   bool `json:"sms_verified" dynamodbav:"sms_verified"`
	EmailVerified bool `json:"email_verified" dynamodbav:"email_verified"`
	FullyVerified bool `json:"fully_verified" dynamodbav:"fully_verified"`

	VerificationAttempts      int `json:"-" dynamodbav:"verification_attempts"`
	EmailVerificationAttempts int `json:"-" dynamodbav:"email_verification_attempts"`

	LastVerificationSent      *time.Time `json:"-" dynamodbav:"last_verification_sent"`
	LastEmailVerificationSent *time.Time `json:"-" dynamodbav:"last_email_verification_sent"`

	EmailChangeVerificationStep string `json:"email_change_step" dynamodbav:"email_change_step"`
	KYCStatus                   string `json:"kyc_status" dynamodbav:"kyc_status"`
	KYCDocumentKey              string `json:"-" dynamodbav:"kyc_document_key"`

	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Fully reports whether both channels have been proven. FullyVerified is
// derived state and must be recomputed through this function inside every
// transition that touches either input flag.
func (a *Account) Fully() bool {
	return a.SMSVerified && a.EmailVerified
}

type CreateAccountRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	PIN         string `json:"pin" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	PIN         string `json:"pin" validate:"required,len=6,numeric"`
}

type SendVerificationRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type VerifyCodeRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

type AddEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyEmailRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type EmailChangeRequest struct {
	NewEmail string `json:"new_email" validate:"required,email"`
}

type SubmitKYCDocumentRequest struct {
	Filename string `json:"filename" validate:"required"`
	Data     string `json:"data" validate:"required"` // base64-encoded document
}
