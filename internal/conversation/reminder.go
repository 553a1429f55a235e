package conversation

import (
	"context"
	"log"
	"time"
)

// ReminderWorker periodically nudges guests who entered WaitingForPayment
// and went quiet, so the elapsed-time transition fires even without an
// inbound event.
type ReminderWorker struct {
	engine   *Engine
	stopChan chan struct{}
	ticker   *time.Ticker
	interval time.Duration
}

func NewReminderWorker(engine *Engine) *ReminderWorker {
	return &ReminderWorker{
		engine:   engine,
		stopChan: make(chan struct{}),
		interval: time.Minute,
	}
}

func (w *ReminderWorker) Start() {
	if w == nil {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

func (w *ReminderWorker) Stop() {
	if w == nil {
		return
	}
	close(w.stopChan)
	if w.ticker != nil {
		w.ticker.Stop()
	}
}

func (w *ReminderWorker) loop() {
	ctx := context.Background()
	for {
		select {
		case <-w.ticker.C:
			w.tick(ctx)
		case <-w.stopChan:
			return
		}
	}
}

func (w *ReminderWorker) tick(ctx context.Context) {
	cutoff := w.engine.now().Add(-w.engine.reminderAfter)
	states, err := w.engine.store.ListAwaitingPayment(ctx, cutoff)
	if err != nil {
		log.Printf("reminder: failed to load overdue payments: %v", err)
		return
	}
	for _, st := range states {
		w.engine.Nudge(ctx, st.UserID)
	}
}
