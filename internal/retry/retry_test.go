package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeAlerter struct {
	alerts []string
}

func (f *fakeAlerter) Alert(text string) { f.alerts = append(f.alerts, text) }

func newTestOrchestrator(attempts int, alerts Alerter) *Orchestrator {
	o := New(attempts, time.Second, alerts)
	o.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return o
}

func TestDoSucceedsFirstTry(t *testing.T) {
	alerts := &fakeAlerter{}
	o := newTestOrchestrator(3, alerts)

	calls := 0
	err := o.Do(context.Background(), "busca", "aguarde", nil, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(alerts.alerts) != 0 {
		t.Errorf("alerts = %v, want none", alerts.alerts)
	}
}

func TestDoRecoversAfterFailures(t *testing.T) {
	alerts := &fakeAlerter{}
	o := newTestOrchestrator(5, alerts)

	var notices []string
	calls := 0
	err := o.Do(context.Background(), "busca", "está demorando", func(s string) {
		notices = append(notices, s)
	}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	// One alert per failed attempt.
	if len(alerts.alerts) != 2 {
		t.Errorf("alerts = %d, want 2", len(alerts.alerts))
	}
	// Delay notice sent once, after the second failure.
	if len(notices) != 1 || notices[0] != "está demorando" {
		t.Errorf("notices = %v, want one delay notice", notices)
	}
}

func TestDoExhaustion(t *testing.T) {
	alerts := &fakeAlerter{}
	o := newTestOrchestrator(3, alerts)

	boom := errors.New("boom")
	err := o.Do(context.Background(), "extração", "aguarde", nil, func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("err should wrap the last failure, got %v", err)
	}
	if len(alerts.alerts) != 3 {
		t.Errorf("alerts = %d, want 3", len(alerts.alerts))
	}
}

func TestDoNoticeSentOnce(t *testing.T) {
	o := newTestOrchestrator(5, nil)

	notices := 0
	_ = o.Do(context.Background(), "busca", "aguarde", func(string) { notices++ }, func(ctx context.Context) error {
		return errors.New("down")
	})
	if notices != 1 {
		t.Errorf("notices = %d, want 1", notices)
	}
}

func TestDoContextCancelDuringSleep(t *testing.T) {
	o := New(3, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.Do(ctx, "busca", "", nil, func(ctx context.Context) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
