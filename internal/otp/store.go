// Package otp holds short-lived numeric verification codes in process
// memory, one store instance per delivery channel. Codes are one-shot,
// expire after a fixed TTL and tolerate a fixed number of wrong guesses.
// Nothing here survives a restart.
package otp

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/go-wallet-api/internal/domain"
)

// Outcome tags the result of a Verify call. Wrong codes are a normal
// outcome, not an error.
type Outcome string

const (
	Approved Outcome = "approved"
	Expired  Outcome = "expired"
	Failed   Outcome = "failed"
)

// Result carries the verification outcome. Exhausted is set on the Failed
// outcome that consumed the entry's last allowed attempt.
type Result struct {
	Outcome   Outcome
	Exhausted bool
}

type entry struct {
	code      string
	expiresAt time.Time
	attempts  int
	createdAt time.Time
}

// Store issues and verifies one-time codes keyed by recipient identifier
// (normalized phone or lowercased email). At most one live entry per
// recipient: issuing again overwrites, implicitly invalidating the old code.
type Store struct {
	mu          sync.Mutex
	entries     map[string]*entry
	ttl         time.Duration
	maxAttempts int

	done chan struct{}
	once sync.Once
	now  func() time.Time // swapped in tests
}

// NewStore creates a store and starts its background sweep. The sweep is a
// safety net — expiry is enforced lazily on Verify regardless of timing.
func NewStore(ttl time.Duration, maxAttempts int, sweepInterval time.Duration) *Store {
	s := &Store{
		entries:     make(map[string]*entry),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		done:        make(chan struct{}),
		now:         time.Now,
	}
	go s.sweep(sweepInterval)
	return s
}

// Issue generates a fresh 6-digit code for recipient, replacing any prior
// live entry, and returns it. Delivery is the caller's job.
func (s *Store) Issue(recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", fmt.Errorf("empty recipient: %w", domain.ErrBadRequest)
	}
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	now := s.now()
	s.mu.Lock()
	s.entries[recipient] = &entry{
		code:      code,
		expiresAt: now.Add(s.ttl),
		createdAt: now,
	}
	s.mu.Unlock()
	return code, nil
}

// Verify checks submitted against the live code for recipient.
// Order of checks: missing/expired entry, then attempt ceiling, then
// equality. Approved and exhausted entries are deleted; an ordinary wrong
// guess keeps the entry so remaining attempts can still succeed.
func (s *Store) Verify(recipient, submitted string) (Result, error) {
	recipient = strings.TrimSpace(recipient)
	submitted = strings.TrimSpace(submitted)
	if recipient == "" {
		return Result{}, fmt.Errorf("empty recipient: %w", domain.ErrBadRequest)
	}
	for _, r := range submitted {
		if r < '0' || r > '9' {
			return Result{}, fmt.Errorf("non-numeric code: %w", domain.ErrBadRequest)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[recipient]
	if !ok {
		return Result{Outcome: Expired}, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, recipient)
		return Result{Outcome: Expired}, nil
	}
	if e.attempts >= s.maxAttempts {
		delete(s.entries, recipient)
		return Result{Outcome: Failed, Exhausted: true}, nil
	}
	if submitted == e.code {
		delete(s.entries, recipient) // one-shot: codes are not reusable
		return Result{Outcome: Approved}, nil
	}
	e.attempts++
	return Result{Outcome: Failed}, nil
}

// CleanupExpired removes every entry past its expiry and returns how many
// were dropped.
func (s *Store) CleanupExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Stop terminates the background sweep. Safe to call more than once.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.CleanupExpired(); n > 0 {
				slog.Debug("swept expired verification codes", "removed", n)
			}
		case <-s.done:
			return
		}
	}
}

// generateCode draws a uniformly random 6-digit code, leading zeros kept.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
