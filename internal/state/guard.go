package state

import (
	"sync"
	"time"
)

// RunGuard is the mutual-exclusion lease for sync runs. It replaces a
// read-then-write status flag: acquisition is an atomic test-and-set under
// one mutex, the lease names its holder and expires so a crashed run can't
// wedge the scheduler forever.
type RunGuard struct {
	mu        sync.Mutex
	holder    string
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewRunGuard returns a guard whose leases expire after ttl.
func NewRunGuard(ttl time.Duration) *RunGuard {
	return &RunGuard{
		ttl: ttl,
		now: time.Now,
	}
}

// TryAcquire takes the lease for holder if it is free or expired.
func (g *RunGuard) TryAcquire(holder string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.holder != "" && g.now().Before(g.expiresAt) {
		return false
	}

	g.holder = holder
	g.expiresAt = g.now().Add(g.ttl)
	return true
}

// Steal transfers the lease to holder regardless of the current owner.
// This is the explicit manual-sync override; callers are expected to log it.
// It returns the previous holder, if the lease was held.
func (g *RunGuard) Steal(holder string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	previous := ""
	if g.holder != "" && g.now().Before(g.expiresAt) {
		previous = g.holder
	}

	g.holder = holder
	g.expiresAt = g.now().Add(g.ttl)
	return previous
}

// Renew extends the lease between batches, but only for its holder.
func (g *RunGuard) Renew(holder string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.holder != holder || g.now().After(g.expiresAt) {
		return false
	}
	g.expiresAt = g.now().Add(g.ttl)
	return true
}

// Release frees the lease if holder still owns it.
func (g *RunGuard) Release(holder string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.holder == holder {
		g.holder = ""
		g.expiresAt = time.Time{}
	}
}

// Holder returns the current lease holder, or "" when free or expired.
func (g *RunGuard) Holder() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.holder == "" || g.now().After(g.expiresAt) {
		return ""
	}
	return g.holder
}
