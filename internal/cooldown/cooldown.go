// Package cooldown enforces the minimum interval between successive
// code-issuance requests for the same account and channel. The state rides
// on the account's own lastSent timestamps — nil means no cooldown.
package cooldown

import (
	"math"
	"time"
)

// CanSend reports whether a new code may be issued given the previous send
// time. A nil lastSentAt always allows.
func CanSend(lastSentAt *time.Time, interval time.Duration, now time.Time) bool {
	return lastSentAt == nil || now.Sub(*lastSentAt) >= interval
}

// Remaining returns the whole seconds left on the cooldown, zero when it
// has elapsed (or was never started).
func Remaining(lastSentAt *time.Time, interval time.Duration, now time.Time) int {
	if lastSentAt == nil {
		return 0
	}
	left := interval - now.Sub(*lastSentAt)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}
