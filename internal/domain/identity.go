package domain

// Identity is the request-scoped capability snapshot resolved from a bearer
// token plus the account's *current* persisted flags. Authorization decisions
// read this snapshot, never the claims baked into the token at issuance —
// a token minted before email verification must still unlock email-gated
// routes once the account catches up, and vice versa.
type Identity struct {
	AccountID     string
	PhoneNumber   string
	SMSVerified   bool
	EmailVerified bool
	FullyVerified bool
	KYCStatus     string
}
