package claim

import (
	"sync"
	"testing"
	"time"
)

func newTestArbiter(inactivity time.Duration) (*Arbiter, *time.Time) {
	a := New(inactivity)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }
	return a, &now
}

func TestClaimAndBusy(t *testing.T) {
	a, _ := newTestArbiter(30 * time.Minute)

	if r := a.Claim("42", "alice"); r.Outcome != Granted {
		t.Fatalf("first claim: outcome = %v, want Granted", r.Outcome)
	}
	if r := a.Claim("42", "alice"); r.Outcome != Granted {
		t.Errorf("re-claim by holder: outcome = %v, want Granted", r.Outcome)
	}

	r := a.Claim("42", "bob")
	if r.Outcome != Busy {
		t.Fatalf("second user: outcome = %v, want Busy", r.Outcome)
	}
	if r.Holder != "alice" {
		t.Errorf("holder = %q, want alice", r.Holder)
	}
}

func TestBusyCarriesMidSplit(t *testing.T) {
	a, _ := newTestArbiter(30 * time.Minute)
	a.Claim("42", "alice")
	a.Touch("42", "alice", true)

	r := a.Claim("42", "bob")
	if r.Outcome != Busy || !r.HolderMidSplit {
		t.Errorf("got %+v, want Busy with HolderMidSplit", r)
	}
}

func TestInactivityEviction(t *testing.T) {
	a, now := newTestArbiter(30 * time.Minute)
	a.Claim("42", "alice")

	*now = now.Add(31 * time.Minute)
	r := a.Claim("42", "bob")
	if r.Outcome != GrantedAfterEviction {
		t.Fatalf("outcome = %v, want GrantedAfterEviction", r.Outcome)
	}
	if r.EvictedUser != "alice" {
		t.Errorf("evicted = %q, want alice", r.EvictedUser)
	}
	if holder, _ := a.Holder("42"); holder != "bob" {
		t.Errorf("holder = %q, want bob", holder)
	}
}

func TestTouchKeepsClaimAlive(t *testing.T) {
	a, now := newTestArbiter(30 * time.Minute)
	a.Claim("42", "alice")

	*now = now.Add(20 * time.Minute)
	a.Touch("42", "alice", false)
	*now = now.Add(20 * time.Minute)

	// 40 minutes since claim but only 20 since last activity.
	if r := a.Claim("42", "bob"); r.Outcome != Busy {
		t.Errorf("outcome = %v, want Busy", r.Outcome)
	}
}

func TestReleaseOnlyByOwner(t *testing.T) {
	a, _ := newTestArbiter(30 * time.Minute)
	a.Claim("42", "alice")

	a.Release("42", "bob")
	if _, held := a.Holder("42"); !held {
		t.Error("non-owner release dropped the claim")
	}

	a.Release("42", "alice")
	if _, held := a.Holder("42"); held {
		t.Error("owner release did not drop the claim")
	}
}

func TestForceRelease(t *testing.T) {
	a, _ := newTestArbiter(30 * time.Minute)
	a.Claim("42", "alice")

	user, ok := a.ForceRelease("42")
	if !ok || user != "alice" {
		t.Errorf("ForceRelease = (%q, %v), want (alice, true)", user, ok)
	}
	if _, held := a.Holder("42"); held {
		t.Error("claim survived ForceRelease")
	}
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	a := New(30 * time.Minute)

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := a.Claim("42", userID(i))
			if r.Outcome == Granted {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func userID(i int) string {
	return string(rune('a' + i%26)) + string(rune('0'+i/26))
}
