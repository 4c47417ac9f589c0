// Package dedup gives side-effecting endpoints at-most-one-concurrent-request
// semantics. Each logical operation is identified by a caller-built
// fingerprint (e.g. "send-sms:+639171234567"); while a request holding a
// fingerprint is in flight, identical requests are rejected outright.
// Independent of any account-level cooldown.
package dedup

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

type registration struct {
	registeredAt time.Time
	expiresAt    time.Time
}

// Gate is the process-wide admission map. Entries are released when the
// admitted request finishes; the TTL only bounds requests that never signal
// completion (dropped connections, leaked goroutines).
type Gate struct {
	mu       sync.Mutex
	inFlight map[string]*registration
	ttl      time.Duration

	done chan struct{}
	once sync.Once
	now  func() time.Time // swapped in tests
}

// NewGate creates a gate and starts its stale-entry sweep.
func NewGate(ttl, sweepInterval time.Duration) *Gate {
	g := &Gate{
		inFlight: make(map[string]*registration),
		ttl:      ttl,
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go g.sweep(sweepInterval)
	return g
}

// Begin admits the request if no unexpired registration exists for key.
// When rejected, retryAfter holds the whole seconds until the standing
// registration lapses (never negative).
func (g *Gate) Begin(key string) (admitted bool, retryAfter int) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.inFlight[key]; ok && now.Before(r.expiresAt) {
		secs := int(math.Ceil(r.expiresAt.Sub(now).Seconds()))
		if secs < 0 {
			secs = 0
		}
		return false, secs
	}
	g.inFlight[key] = &registration{registeredAt: now, expiresAt: now.Add(g.ttl)}
	return true, 0
}

// End releases key. Must be called when the admitted request completes —
// success, error or abrupt close alike — so fast retries are not throttled
// for the full TTL.
func (g *Gate) End(key string) {
	g.mu.Lock()
	delete(g.inFlight, key)
	g.mu.Unlock()
}

// CleanupStale removes expired registrations and returns how many were
// dropped. Safety net for requests that never called End.
func (g *Gate) CleanupStale() int {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	removed := 0
	for k, r := range g.inFlight {
		if now.After(r.expiresAt) {
			delete(g.inFlight, k)
			removed++
		}
	}
	return removed
}

// Stop terminates the background sweep. Safe to call more than once.
func (g *Gate) Stop() {
	g.once.Do(func() { close(g.done) })
}

func (g *Gate) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := g.CleanupStale(); n > 0 {
				slog.Debug("swept stale dedup registrations", "removed", n)
			}
		case <-g.done:
			return
		}
	}
}
