package conversation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecristovao/pagbot/internal/claim"
	"github.com/ecristovao/pagbot/internal/ledger"
	"github.com/ecristovao/pagbot/internal/money"
	"github.com/ecristovao/pagbot/internal/orders"
	"github.com/ecristovao/pagbot/internal/proof"
	"github.com/ecristovao/pagbot/internal/retry"
)

// Store persists conversation state. The engine is the only writer: every
// mutation is load → apply transition → persist.
type Store interface {
	Load(ctx context.Context, userID string) (*State, error)
	Save(ctx context.Context, st *State) error
	Delete(ctx context.Context, userID string) error
	ListByOrder(ctx context.Context, orderID string) ([]*State, error)
	ListAwaitingPayment(ctx context.Context, startedBefore time.Time) ([]*State, error)
}

// Sender delivers one outbound directive. No delivery guarantee is assumed
// beyond the call returning.
type Sender interface {
	Send(ctx context.Context, userID string, d Directive) error
}

// OrderLookup fetches the order snapshot from the POS.
type OrderLookup interface {
	Fetch(ctx context.Context, orderID string) (*orders.Snapshot, error)
}

// Extractor turns a receipt image into a structured payment record.
type Extractor interface {
	Extract(ctx context.Context, mediaID string) (proof.Record, error)
}

// ChargeLinker mints a card-payment link at the gateway.
type ChargeLinker interface {
	CreateChargeLink(ctx context.Context, userID string, amount decimal.Decimal, orderID string) (string, error)
}

// Attendant is the restaurant staff channel. Fire and forget.
type Attendant interface {
	Notify(topic, text string)
}

const attendantTopic = "pagamentos"

// Reply is what the engine hands back per inbound event.
type Reply struct {
	Directives []Directive
	NextStep   Step
}

type Deps struct {
	Store     Store
	Sender    Sender
	Orders    OrderLookup
	Extractor Extractor
	Gateway   ChargeLinker
	Attendant Attendant
	Arbiter   *claim.Arbiter
	Retrier   *retry.Orchestrator

	PixKey      string
	Beneficiary proof.Beneficiary

	PaymentReminderAfter time.Duration
	PaceDelay            time.Duration
}

// Engine runs the conversation state machine. Events for the same user are
// applied strictly in arrival order; different users proceed concurrently.
type Engine struct {
	store       Store
	sender      Sender
	orderSvc    OrderLookup
	extractor   Extractor
	gateway     ChargeLinker
	attendant   Attendant
	arbiter     *claim.Arbiter
	retrier     *retry.Orchestrator
	pixKey      string
	beneficiary proof.Beneficiary

	reminderAfter time.Duration
	paceDelay     time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewEngine(d Deps) *Engine {
	pace := d.PaceDelay
	if pace == 0 {
		pace = 800 * time.Millisecond
	}
	return &Engine{
		store:         d.Store,
		sender:        d.Sender,
		orderSvc:      d.Orders,
		extractor:     d.Extractor,
		gateway:       d.Gateway,
		attendant:     d.Attendant,
		arbiter:       d.Arbiter,
		retrier:       d.Retrier,
		pixKey:        d.PixKey,
		beneficiary:   d.Beneficiary,
		reminderAfter: d.PaymentReminderAfter,
		paceDelay:     pace,
		now:           time.Now,
		sleep:         func(ctx context.Context, dur time.Duration) { time.Sleep(dur) },
		userLocks:     make(map[string]*sync.Mutex),
	}
}

// lockUser serializes event handling per user identity.
func (e *Engine) lockUser(userID string) func() {
	e.mu.Lock()
	l, ok := e.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.userLocks[userID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// forgetUser drops the per-user lock once its conversation is gone, so the
// lock map does not grow with every guest identity the process ever saw.
func (e *Engine) forgetUser(userID string) {
	e.mu.Lock()
	delete(e.userLocks, userID)
	e.mu.Unlock()
}

// orderBound reports whether another conversation is still working this
// order. A split keeps the order bound through every sibling, not just the
// claim holder. Conversations idle past the inactivity window do not block;
// they are returned as stale for eviction instead.
func (e *Engine) orderBound(ctx context.Context, orderID, userID string) (active, midSplit bool, stale []string) {
	siblings, err := e.store.ListByOrder(ctx, orderID)
	if err != nil {
		log.Printf("conversation: list conversations for order %s: %v", orderID, err)
		return false, false, nil
	}
	for _, sib := range siblings {
		if sib.UserID == userID {
			continue
		}
		if e.now().Sub(sib.UpdatedAt) < e.arbiter.Inactivity() {
			active = true
			midSplit = midSplit || sib.Split != nil
			continue
		}
		stale = append(stale, sib.UserID)
	}
	return active, midSplit, stale
}

// HandleEvent applies one inbound event to the user's conversation and
// delivers the resulting messages.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) (*Reply, error) {
	unlock := e.lockUser(ev.UserID)
	defer unlock()

	st, err := e.store.Load(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", ev.UserID, err)
	}
	if st == nil {
		st = newState(ev.UserID)
	}

	h, ok := handlers[st.CurrentStep]
	if !ok {
		// A terminal step should never be persisted; recover by starting over.
		log.Printf("conversation: %s stored at unexpected step %q, resetting", ev.UserID, st.CurrentStep)
		st = newState(ev.UserID)
		h = handlers[StepInitial]
	}

	res, err := h(ctx, e, st, ev)
	if err != nil {
		return nil, err
	}

	st.CurrentStep = res.next
	st.UpdatedAt = e.now()

	if res.next.Terminal() {
		if st.OrderID != "" {
			e.arbiter.Release(st.OrderID, st.UserID)
		}
		if err := e.store.Delete(ctx, st.UserID); err != nil {
			log.Printf("conversation: delete %s: %v", st.UserID, err)
		}
		e.forgetUser(st.UserID)
	} else {
		if err := e.store.Save(ctx, st); err != nil {
			return nil, fmt.Errorf("save conversation %s: %w", st.UserID, err)
		}
		if st.OrderID != "" {
			e.arbiter.Touch(st.OrderID, st.UserID, st.Split != nil)
		}
	}

	for _, uid := range res.evict {
		if err := e.store.Delete(ctx, uid); err != nil {
			log.Printf("conversation: evict %s: %v", uid, err)
		}
		e.forgetUser(uid)
	}

	e.spawnSiblings(ctx, st, res.spawn)
	e.deliver(ctx, ev.UserID, res.directives)

	return &Reply{Directives: res.directives, NextStep: res.next}, nil
}

// spawnSiblings creates one fresh conversation per split participant and
// sends them their payment-initiation notice. Each sibling starts at
// ExtraTip with its own share.
func (e *Engine) spawnSiblings(ctx context.Context, origin *State, cmds []spawnCmd) {
	for _, cmd := range cmds {
		if cmd.contact.Phone == "" || cmd.contact.Phone == origin.UserID {
			continue
		}
		unlock := e.lockUser(cmd.contact.Phone)

		sib := newState(cmd.contact.Phone)
		sib.CurrentStep = StepExtraTip
		sib.OrderID = origin.OrderID
		sib.Order = origin.Order
		sib.Split = copySplit(origin.Split)
		sib.ExpectedShare = cmd.share
		sib.UserAmount = cmd.share
		sib.UpdatedAt = e.now()

		if err := e.store.Save(ctx, sib); err != nil {
			log.Printf("conversation: spawn %s: %v", sib.UserID, err)
			unlock()
			continue
		}
		unlock()

		e.deliver(ctx, sib.UserID, []Directive{
			textMsg(msgSplitInvite(cmd.contact.Name, origin.OrderID, cmd.share)),
			tipButtons(),
		})
	}
}

func copySplit(s *ledger.SplitInfo) *ledger.SplitInfo {
	if s == nil {
		return nil
	}
	cp := &ledger.SplitInfo{NumberOfPeople: s.NumberOfPeople}
	cp.Participants = append(cp.Participants, s.Participants...)
	return cp
}

// deliver sends directives in order with a fixed pause between messages so
// the transport shows them in sequence.
func (e *Engine) deliver(ctx context.Context, userID string, ds []Directive) {
	for i, d := range ds {
		if i > 0 {
			e.sleep(ctx, e.paceDelay)
		}
		if err := e.sender.Send(ctx, userID, d); err != nil {
			log.Printf("conversation: send to %s: %v", userID, err)
		}
	}
}

// notifier returns the delay-notice callback the retry orchestrator uses to
// keep the guest informed while a collaborator is slow.
func (e *Engine) notifier(ctx context.Context, userID string) func(string) {
	return func(text string) {
		if err := e.sender.Send(ctx, userID, textMsg(text)); err != nil {
			log.Printf("conversation: delay notice to %s: %v", userID, err)
		}
	}
}

func (e *Engine) notifyAttendant(text string) {
	if e.attendant != nil {
		e.attendant.Notify(attendantTopic, text)
	}
}

// acceptProof records a validated receipt and credits this user's ledger row.
func (e *Engine) acceptProof(st *State, rec proof.Record) {
	rec.Amount = money.Round2(rec.Amount)
	st.PaymentProofs = append(st.PaymentProofs, rec)
	st.PaidTotal = money.Round2(st.PaidTotal.Add(rec.Amount))
	if st.Split != nil {
		if err := st.Split.Credit(st.UserID, rec.Amount); err != nil {
			log.Printf("conversation: credit %s on order %s: %v", st.UserID, st.OrderID, err)
		}
	}
}

func (e *Engine) paymentOverdue(st *State) bool {
	if st.PaymentStartTime == nil || e.reminderAfter <= 0 {
		return false
	}
	return e.now().Sub(*st.PaymentStartTime) >= e.reminderAfter
}

// reconciliationSummary builds the attendant-facing settlement view. Split
// bills itemize every participant; single payers get the short form.
func (e *Engine) reconciliationSummary(ctx context.Context, st *State) string {
	if st.Split == nil {
		// At settlement time anything beyond the excess was owed.
		expected := st.PaidTotal
		if st.ExcessAmount != nil {
			expected = expected.Sub(*st.ExcessAmount)
		}
		return ledger.SingleSummary(st.OrderID, expected, st.PaidTotal)
	}

	merged := e.mergedSplit(ctx, st)
	summary := merged.SplitSummary(st.OrderID)
	total := decimal.Zero
	if st.Order != nil {
		total = st.Order.EffectiveTotal()
	}
	if ledger.OrderPaid(total, decimal.Zero, merged) {
		summary += "Comanda totalmente paga. ✅\n"
	}
	return summary
}

// mergedSplit overlays each sibling conversation's own payments onto the
// shared roster. Every conversation only ever writes its own row, so reading
// the siblings here needs no locking discipline.
func (e *Engine) mergedSplit(ctx context.Context, st *State) *ledger.SplitInfo {
	merged := copySplit(st.Split)
	siblings, err := e.store.ListByOrder(ctx, st.OrderID)
	if err != nil {
		log.Printf("conversation: list siblings for order %s: %v", st.OrderID, err)
		return merged
	}
	for _, sib := range siblings {
		if sib.UserID == st.UserID {
			continue
		}
		for i := range merged.Participants {
			if merged.Participants[i].Phone == sib.UserID {
				merged.Participants[i].PaidAmount = sib.PaidTotal
			}
		}
	}
	return merged
}

// Nudge moves a silent conversation from WaitingForPayment to
// PaymentReminder. Called by the reminder sweep.
func (e *Engine) Nudge(ctx context.Context, userID string) {
	unlock := e.lockUser(userID)
	defer unlock()

	st, err := e.store.Load(ctx, userID)
	if err != nil || st == nil {
		return
	}
	if st.CurrentStep != StepWaitingForPayment || !e.paymentOverdue(st) {
		return
	}
	st.CurrentStep = StepPaymentReminder
	st.UpdatedAt = e.now()
	if err := e.store.Save(ctx, st); err != nil {
		log.Printf("conversation: nudge save %s: %v", userID, err)
		return
	}
	e.deliver(ctx, userID, []Directive{textMsg(msgPaymentNudge)})
}
