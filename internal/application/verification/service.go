// Package verification owns the account verification state machine: SMS and
// email proof, the derived fully-verified flag, and the three-step
// email-change protocol. All code issuance goes through the per-channel OTP
// stores; all flag transitions recompute fully_verified from its inputs.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-wallet-api/internal/cooldown"
	"github.com/go-wallet-api/internal/domain"
	"github.com/go-wallet-api/internal/otp"
	"github.com/go-wallet-api/internal/phone"
)

// CodeStore is the per-channel OTP store surface.
type CodeStore interface {
	Issue(recipient string) (string, error)
	Verify(recipient, submitted string) (otp.Result, error)
}

// AccountStore is the account persistence surface the state machine needs.
// Increment must be atomic at the store: racing wrong-code submissions all
// have to land their attempt-count bump.
type AccountStore interface {
	Get(ctx context.Context, phoneNumber string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, phoneNumber string, updates map[string]interface{}) error
	Increment(ctx context.Context, phoneNumber, field string) error
}

// SMSSender delivers an SMS and returns the provider message id.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) (string, error)
}

// Mailer delivers an email.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// SendReceipt reports where a code went and the provider's message id.
// The email channel has no provider id (net/smtp returns none), so
// MessageID is empty for email sends.
type SendReceipt struct {
	To        string
	MessageID string
}

type Service interface {
	SendSMSVerification(ctx context.Context, rawPhone string) (*SendReceipt, error)
	VerifySMSCode(ctx context.Context, rawPhone, code string) error
	AddEmail(ctx context.Context, phoneNumber, email string) (*domain.Account, error)
	SendEmailVerification(ctx context.Context, phoneNumber string) (*SendReceipt, error)
	VerifyEmail(ctx context.Context, phoneNumber, code string) error
	RequestEmailChange(ctx context.Context, phoneNumber, newEmail string) error
	VerifyEmailChangeSMS(ctx context.Context, phoneNumber, code string) error
	VerifyEmailChangeEmail(ctx context.Context, phoneNumber, code string) (newEmail string, err error)
}

// Config carries the tunables the state machine enforces.
type Config struct {
	SendCooldown     time.Duration
	EmailMaxAttempts int
	DeliveryTimeout  time.Duration
	DeliveryRetries  int
}

type service struct {
	accounts AccountStore
	smsOTP   CodeStore
	emailOTP CodeStore
	sms      SMSSender
	mailer   Mailer
	cfg      Config
	now      func() time.Time
}

func NewService(accounts AccountStore, smsOTP, emailOTP CodeStore, sms SMSSender, mailer Mailer, cfg Config) Service {
	return &service{
		accounts: accounts,
		smsOTP:   smsOTP,
		emailOTP: emailOTP,
		sms:      sms,
		mailer:   mailer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SendSMSVerification issues a code for the phone and delivers it. For an
// existing account the per-account cooldown applies and the send timestamp
// is stamped; during signup no account exists yet and only the dedup gate
// throttles.
func (s *service) SendSMSVerification(ctx context.Context, rawPhone string) (*SendReceipt, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}

	a, err := s.accounts.Get(ctx, normalized)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	now := s.now()
	if a != nil {
		if !cooldown.CanSend(a.LastVerificationSent, s.cfg.SendCooldown, now) {
			return nil, &domain.RetryAfterError{Seconds: cooldown.Remaining(a.LastVerificationSent, s.cfg.SendCooldown, now)}
		}
	}

	code, err := s.smsOTP.Issue(normalized)
	if err != nil {
		return nil, err
	}
	msgID, err := s.deliverSMS(ctx, normalized, "Your wallet verification code is "+code)
	if err != nil {
		return nil, err
	}

	if a != nil {
		if err := s.accounts.Update(ctx, normalized, map[string]interface{}{
			"last_verification_sent": now.UTC().Format(time.RFC3339),
			"verification_attempts":  0,
		}); err != nil {
			return nil, err
		}
	}
	return &SendReceipt{To: normalized, MessageID: msgID}, nil
}

// VerifySMSCode validates a phone-possession code. On approval for an
// existing account the SMS flag flips on (one-way) and counters reset;
// during signup approval is simply reported so account creation can follow.
func (s *service) VerifySMSCode(ctx context.Context, rawPhone, code string) error {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return err
	}

	res, err := s.smsOTP.Verify(normalized, code)
	if err != nil {
		return err
	}
	if res.Outcome == otp.Approved {
		a, err := s.accounts.Get(ctx, normalized)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil // signup flow: nothing persisted yet
			}
			return err
		}
		a.SMSVerified = true
		return s.accounts.Update(ctx, normalized, map[string]interface{}{
			"sms_verified":           true,
			"fully_verified":         a.Fully(),
			"verification_attempts":  0,
			"last_verification_sent": nil,
		})
	}

	if res.Outcome == otp.Failed && !res.Exhausted {
		// Track the account-level counter when there is an account to track.
		if _, gerr := s.accounts.Get(ctx, normalized); gerr == nil {
			if ierr := s.accounts.Increment(ctx, normalized, "verification_attempts"); ierr != nil {
				slog.Warn("failed to bump verification attempts", "err", ierr)
			}
		}
	}
	return resultError(res)
}

// AddEmail binds (or rebinds) an unverified email to the account. The email
// must not be the verified-current address of another account.
func (s *service) AddEmail(ctx context.Context, phoneNumber, email string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if other, err := s.accounts.GetByEmail(ctx, email); err == nil && other.PhoneNumber != phoneNumber {
		return nil, fmt.Errorf("email already in use: %w", domain.ErrConflict)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	a, err := s.accounts.Get(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}

	a.Email = email
	a.EmailVerified = false
	a.EmailVerificationAttempts = 0
	a.LastEmailVerificationSent = nil
	a.FullyVerified = a.Fully()
	if err := s.accounts.Update(ctx, phoneNumber, map[string]interface{}{
		"email":                        email,
		"email_verified":               false,
		"fully_verified":               a.FullyVerified,
		"email_verification_attempts":  0,
		"last_email_verification_sent": nil,
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// SendEmailVerification issues and delivers a code for the bound email.
// Starts a fresh attempt cycle: the account-level counter resets.
func (s *service) SendEmailVerification(ctx context.Context, phoneNumber string) (*SendReceipt, error) {
	a, err := s.accounts.Get(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	if a.Email == "" {
		return nil, fmt.Errorf("no email on account: %w", domain.ErrPrecondition)
	}
	if a.EmailVerified {
		return nil, fmt.Errorf("email already verified: %w", domain.ErrPrecondition)
	}
	now := s.now()
	if !cooldown.CanSend(a.LastEmailVerificationSent, s.cfg.SendCooldown, now) {
		return nil, &domain.RetryAfterError{Seconds: cooldown.Remaining(a.LastEmailVerificationSent, s.cfg.SendCooldown, now)}
	}

	code, err := s.emailOTP.Issue(a.Email)
	if err != nil {
		return nil, err
	}
	if err := s.deliverEmail(ctx, a.Email, "Verify your email", "Your wallet verification code is "+code); err != nil {
		return nil, err
	}

	if err := s.accounts.Update(ctx, phoneNumber, map[string]interface{}{
		"last_email_verification_sent": now.UTC().Format(time.RFC3339),
		"email_verification_attempts":  0,
	}); err != nil {
		return nil, err
	}
	return &SendReceipt{To: a.Email, MessageID: ""}, nil
}

// VerifyEmail validates an email-possession code. Two ceilings apply: the
// code's own attempt limit inside the OTP store and the coarser
// account-level counter — whichever trips first ends the cycle.
func (s *service) VerifyEmail(ctx context.Context, phoneNumber, code string) error {
	a, err := s.accounts.Get(ctx, phoneNumber)
	if err != nil {
		return err
	}
	if a.Email == "" {
		return fmt.Errorf("no email on account: %w", domain.ErrPrecondition)
	}
	if a.EmailVerificationAttempts >= s.cfg.EmailMaxAttempts {
		return fmt.Errorf("%w: request a new code", domain.ErrAttemptsExhausted)
	}

	res, err := s.emailOTP.Verify(a.Email, code)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case otp.Approved:
		a.EmailVerified = true
		if err := s.accounts.Update(ctx, phoneNumber, map[string]interface{}{
			"email_verified":               true,
			"fully_verified":               a.Fully(),
			"email_verification_attempts":  0,
			"last_email_verification_sent": nil,
		}); err != nil {
			return err
		}
		// Welcome note is best-effort: a delivery hiccup must not fail a
		// verification that already committed.
		if a.Fully() {
			if err := s.mailer.SendEmail(a.Email, "Welcome!", "Your wallet account is fully verified."); err != nil {
				slog.Warn("welcome email failed", "account_id", a.AccountID, "err", err)
			}
		}
		return nil
	case otp.Failed:
		if !res.Exhausted {
			if err := s.accounts.Increment(ctx, phoneNumber, "email_verification_attempts"); err != nil {
				slog.Warn("failed to bump email verification attempts", "account_id", a.AccountID, "err", err)
			}
		}
		return resultError(res)
	default:
		return resultError(res)
	}
}

// RequestEmailChange opens the three-step change protocol: bind the
// candidate address as pending and demand fresh proof of phone possession
// before any code ever reaches the new address.
func (s *service) RequestEmailChange(ctx context.Context, phoneNumber, newEmail string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))

	a, err := s.accounts.Get(ctx, phoneNumber)
	if err != nil {
		return err
	}
	if a.EmailChangeVerificationStep != domain.EmailChangeNone {
		return fmt.Errorf("email change already in progress: %w", domain.ErrPrecondition)
	}
	if newEmail == a.Email {
		return fmt.Errorf("new email matches current email: %w", domain.ErrBadRequest)
	}
	if other, err := s.accounts.GetByEmail(ctx, newEmail); err == nil && other.PhoneNumber != phoneNumber {
		return fmt.Errorf("email already in use: %w", domain.ErrConflict)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	return s.accounts.Update(ctx, phoneNumber, map[string]interface{}{
		"pending_email":     newEmail,
		"email_change_step": domain.EmailChangeSMSPending,
	})
}

// VerifyEmailChangeSMS proves phone possession (step sms_pending). On
// approval the protocol advances and, in the same call, a code is issued
// and delivered to the pending address.
func (s *service) VerifyEmailChangeSMS(ctx context.Context, phoneNumber, code string) error {
	a, err := s.accounts.Get(ctx, phoneNumber)
	if err != nil {
		return err
	}
	if a.EmailChangeVerificationStep != domain.EmailChangeSMSPending {
		return fmt.Errorf("email change not awaiting SMS proof: %w", domain.ErrPrecondition)
	}

	res, err := s.smsOTP.Verify(phoneNumber, code)
	if err != nil {
		return err
	}
	if res.Outcome != otp.Approved {
		return resultError(res)
	}

	emailCode, err := s.emailOTP.Issue(a.PendingEmail)
	if err != nil {
		return err
	}
	if err := s.deliverEmail(ctx, a.PendingEmail, "Confirm your new email", "Your wallet verification code is "+emailCode); err != nil {
		return err
	}

	return s.accounts.Update(ctx, phoneNumber, map[string]interface{}{
		"email_change_step":            domain.EmailChangeEmailPending,
		"last_email_verification_sent": s.now().UTC().Format(time.RFC3339),
	})
}

// VerifyEmailChangeEmail finalizes the protocol (step email_pending). The
// swap is a single atomic write — the transient "completed" value is never
// persisted, so a crash can't strand the account mid-fold. A call arriving
// after the fold (step none, nothing pending) is a client retry of a
// finalize that already succeeded and is answered with the same success.
func (s *service) VerifyEmailChangeEmail(ctx context.Context, phoneNumber, code string) (string, error) {
	a, err := s.accounts.Get(ctx, phoneNumber)
	if err != nil {
		return "", err
	}
	switch a.EmailChangeVerificationStep {
	case domain.EmailChangeNone, domain.EmailChangeCompleted:
		return a.Email, nil // idempotent retry of a finished finalize
	case domain.EmailChangeEmailPending:
	default:
		return "", fmt.Errorf("email change not awaiting email proof: %w", domain.ErrPrecondition)
	}

	res, err := s.emailOTP.Verify(a.PendingEmail, code)
	if err != nil {
		return "", err
	}
	if res.Outcome != otp.Approved {
		return "", resultError(res)
	}

	newEmail := a.PendingEmail
	a.Email = newEmail
	a.EmailVerified = true
	if err := s.accounts.Update(ctx, phoneNumber, map[string]interface{}{
		"email":                        newEmail,
		"pending_email":                "",
		"email_verified":               true,
		"fully_verified":               a.Fully(),
		"email_change_step":            domain.EmailChangeNone,
		"email_verification_attempts":  0,
		"last_email_verification_sent": nil,
	}); err != nil {
		return "", err
	}
	return newEmail, nil
}

// resultError maps a non-approved OTP outcome onto the error taxonomy.
func resultError(res otp.Result) error {
	switch {
	case res.Outcome == otp.Expired:
		return fmt.Errorf("code expired or not found: %w", domain.ErrCodeExpired)
	case res.Exhausted:
		return fmt.Errorf("too many wrong codes: %w", domain.ErrAttemptsExhausted)
	default:
		return fmt.Errorf("wrong code: %w", domain.ErrInvalidCode)
	}
}

// deliverSMS sends with a bounded timeout per try and retries transient
// provider failures only.
func (s *service) deliverSMS(ctx context.Context, to, message string) (string, error) {
	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= s.cfg.DeliveryRetries; attempt++ {
		tryCtx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
		msgID, err := s.sms.SendSMS(tryCtx, to, message)
		cancel()
		if err == nil {
			return msgID, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrUnavailable) {
			return "", err // permanent rejection, retrying won't help
		}
		slog.Warn("sms delivery failed", "attempt", attempt+1, "err", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		backoff *= 2
	}
	return "", lastErr
}

func (s *service) deliverEmail(ctx context.Context, to, subject, body string) error {
	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= s.cfg.DeliveryRetries; attempt++ {
		err := s.mailer.SendEmail(to, subject, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrUnavailable) {
			return err
		}
		slog.Warn("email delivery failed", "attempt", attempt+1, "err", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return lastErr
}
