// Package retry wraps calls to unreliable collaborators (order lookup,
// receipt extraction) with bounded attempts, a user-facing "taking longer
// than expected" notice, and operator alerts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrExhausted marks a request that failed every attempt. The caller routes
// the conversation to its error-absorbing step and apologizes there.
var ErrExhausted = errors.New("retries exhausted")

// Alerter receives one operator alert per failed attempt. Implemented by the
// Discord ops channel; failures there are logged, never propagated.
type Alerter interface {
	Alert(text string)
}

type Orchestrator struct {
	Attempts    int
	Delay       time.Duration
	NoticeAfter int
	Alerts      Alerter

	// sleep is swapped out in tests so retries run without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(attempts int, delay time.Duration, alerts Alerter) *Orchestrator {
	return &Orchestrator{
		Attempts:    attempts,
		Delay:       delay,
		NoticeAfter: 2,
		Alerts:      alerts,
		sleep:       sleepCtx,
	}
}

// Do runs fn up to Attempts times with a fixed delay between attempts.
// After NoticeAfter failures the delayNotice is delivered to the user once
// through notify. Every failure raises an operator alert. When all attempts
// fail the returned error wraps ErrExhausted and the last failure.
func (o *Orchestrator) Do(ctx context.Context, label, delayNotice string, notify func(string), fn func(context.Context) error) error {
	attempts := o.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	noticed := false
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Printf("retry: %s attempt %d/%d failed: %v", label, attempt, attempts, err)
		if o.Alerts != nil {
			o.Alerts.Alert(fmt.Sprintf("%s: tentativa %d/%d falhou: %v", label, attempt, attempts, err))
		}
		if !noticed && attempt >= o.NoticeAfter && notify != nil && delayNotice != "" {
			notify(delayNotice)
			noticed = true
		}
		if attempt < attempts {
			if err := o.sleep(ctx, o.Delay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%s: %w: %w", label, ErrExhausted, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
