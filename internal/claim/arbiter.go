// Package claim arbitrates exclusive ownership of an order id by one active
// conversation. This map is the only shared mutable state between user
// conversations, so every access goes through the mutex.
package claim

import (
	"sync"
	"time"
)

type Outcome int

const (
	// Granted: the requester now owns the order.
	Granted Outcome = iota
	// GrantedAfterEviction: an inactive owner was discarded first.
	GrantedAfterEviction
	// Busy: another conversation is actively working this order.
	Busy
)

// Result of a claim attempt. EvictedUser is set for GrantedAfterEviction;
// Holder and HolderMidSplit describe the blocking conversation for Busy.
type Result struct {
	Outcome        Outcome
	EvictedUser    string
	Holder         string
	HolderMidSplit bool
}

type entry struct {
	userID       string
	midSplit     bool
	lastActivity time.Time
}

type Arbiter struct {
	mu         sync.Mutex
	claims     map[string]*entry
	inactivity time.Duration
	now        func() time.Time
}

func New(inactivity time.Duration) *Arbiter {
	return NewWithClock(inactivity, time.Now)
}

// NewWithClock is New with an injectable clock, so tests can simulate
// inactivity without waiting.
func NewWithClock(inactivity time.Duration, now func() time.Time) *Arbiter {
	return &Arbiter{
		claims:     make(map[string]*entry),
		inactivity: inactivity,
		now:        now,
	}
}

// Claim tries to bind orderID to userID. Re-claiming an order you already
// hold refreshes its activity and succeeds.
func (a *Arbiter) Claim(orderID, userID string) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	e, ok := a.claims[orderID]
	if !ok {
		a.claims[orderID] = &entry{userID: userID, lastActivity: now}
		return Result{Outcome: Granted}
	}
	if e.userID == userID {
		e.lastActivity = now
		return Result{Outcome: Granted}
	}
	if now.Sub(e.lastActivity) >= a.inactivity {
		evicted := e.userID
		a.claims[orderID] = &entry{userID: userID, lastActivity: now}
		return Result{Outcome: GrantedAfterEviction, EvictedUser: evicted}
	}
	return Result{Outcome: Busy, Holder: e.userID, HolderMidSplit: e.midSplit}
}

// Touch refreshes the owner's activity and records whether the conversation
// is mid-split (used to enrich the Busy message for other requesters).
func (a *Arbiter) Touch(orderID, userID string, midSplit bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.claims[orderID]; ok && e.userID == userID {
		e.lastActivity = a.now()
		e.midSplit = midSplit
	}
}

// Release drops the claim if userID still holds it.
func (a *Arbiter) Release(orderID, userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.claims[orderID]; ok && e.userID == userID {
		delete(a.claims, orderID)
	}
}

// ForceRelease drops the claim regardless of owner (operator action).
// Returns the user that held it, if any.
func (a *Arbiter) ForceRelease(orderID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.claims[orderID]
	if !ok {
		return "", false
	}
	delete(a.claims, orderID)
	return e.userID, true
}

// Inactivity returns the takeover threshold.
func (a *Arbiter) Inactivity() time.Duration {
	return a.inactivity
}

// Holder returns the current owner of an order.
func (a *Arbiter) Holder(orderID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.claims[orderID]
	if !ok {
		return "", false
	}
	return e.userID, true
}

// ClaimInfo is a read-only snapshot row for the ops API.
type ClaimInfo struct {
	OrderID      string    `json:"order_id"`
	UserID       string    `json:"user_id"`
	MidSplit     bool      `json:"mid_split"`
	LastActivity time.Time `json:"last_activity"`
}

func (a *Arbiter) Snapshot() []ClaimInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ClaimInfo, 0, len(a.claims))
	for orderID, e := range a.claims {
		out = append(out, ClaimInfo{
			OrderID:      orderID,
			UserID:       e.userID,
			MidSplit:     e.midSplit,
			LastActivity: e.lastActivity,
		})
	}
	return out
}
