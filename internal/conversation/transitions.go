package conversation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ecristovao/pagbot/internal/claim"
	"github.com/ecristovao/pagbot/internal/ledger"
	"github.com/ecristovao/pagbot/internal/money"
	"github.com/ecristovao/pagbot/internal/orders"
	"github.com/ecristovao/pagbot/internal/proof"
)

// result is what a transition produces: messages to deliver, the next step,
// and side-effect commands the engine executes after persisting.
type result struct {
	directives []Directive
	next       Step
	spawn      []spawnCmd
	evict      []string
}

// spawnCmd creates a sibling conversation for one split participant.
type spawnCmd struct {
	contact Contact
	share   decimal.Decimal
}

type handlerFunc func(ctx context.Context, e *Engine, st *State, ev Event) (result, error)

// handlers is the transition table. Unlisted (terminal) steps never receive
// events: their state is deleted when they are reached.
var handlers = map[Step]handlerFunc{
	StepInitial:              handleInitial,
	StepProcessingOrder:      handleProcessing,
	StepConfirmOrder:         handleConfirmOrder,
	StepSplitBill:            handleSplitBill,
	StepSplitBillNumber:      handleSplitBillNumber,
	StepWaitingForContacts:   handleWaitingForContacts,
	StepExtraTip:             handleExtraTip,
	StepWaitingForPayment:    handleWaitingForPayment,
	StepPaymentReminder:      handleWaitingForPayment,
	StepOverpaymentDecision:  handleOverpaymentDecision,
	StepAwaitingUserDecision: handleAwaitingUserDecision,
	StepFeedback:             handleFeedback,
	StepFeedbackDetail:       handleFeedbackDetail,
	StepOrderNotFound:        handleAbsorbed,
	StepPaymentInvalid:       handleAbsorbed,
	StepPaymentAssistance:    handleAbsorbed,
}

// reprompt re-emits a clarification without changing the step. Unrecognized
// input at a decision point is never an error.
func reprompt(st *State, ds ...Directive) (result, error) {
	return result{directives: ds, next: st.CurrentStep}, nil
}

func handleInitial(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	if ev.Kind != KindText {
		return reprompt(st, textMsg(msgGreeting))
	}
	orderID, ok := parsePayOrder(ev.Text)
	if !ok {
		return reprompt(st, textMsg(msgGreeting))
	}

	// The claim map only binds the holder; a split binds the order through
	// every sibling conversation, so the store is consulted too.
	active, midSplit, stale := e.orderBound(ctx, orderID, st.UserID)
	if active {
		return reprompt(st, textMsg(msgOrderBusy(midSplit)))
	}

	cl := e.arbiter.Claim(orderID, st.UserID)
	if cl.Outcome == claim.Busy {
		return reprompt(st, textMsg(msgOrderBusy(cl.HolderMidSplit)))
	}

	res := result{evict: stale}
	if cl.Outcome == claim.GrantedAfterEviction && !contains(res.evict, cl.EvictedUser) {
		res.evict = append(res.evict, cl.EvictedUser)
	}

	st.OrderID = orderID
	st.CurrentStep = StepProcessingOrder

	var snap *orders.Snapshot
	err := e.retrier.Do(ctx, "busca da comanda "+orderID, msgOrderLookupDelay,
		e.notifier(ctx, st.UserID),
		func(ctx context.Context) error {
			s, err := e.orderSvc.Fetch(ctx, orderID)
			if err != nil {
				return err
			}
			snap = s
			return nil
		})
	if err != nil {
		e.notifyAttendant(fmt.Sprintf("Comanda %s: busca falhou para %s, atendimento manual necessário (%v)", orderID, st.UserID, err))
		e.arbiter.Release(orderID, st.UserID)
		res.directives = append(res.directives, textMsg(msgOrderNotFound))
		res.next = StepOrderNotFound
		return res, nil
	}

	st.Order = snap
	res.directives = append(res.directives, textMsg(orderSummary(snap)), confirmButtons(msgConfirmPrompt))
	res.next = StepConfirmOrder
	return res, nil
}

func handleProcessing(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	return reprompt(st, textMsg("Só um instante, ainda estou processando sua comanda… ⏳"))
}

func handleConfirmOrder(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	switch {
	case ev.ReplyID == btnConfirmYes || (ev.Kind == KindText && isAffirmative(ev.Text)):
		return result{directives: []Directive{splitButtons()}, next: StepSplitBill}, nil
	case ev.ReplyID == btnConfirmNo || (ev.Kind == KindText && isNegative(ev.Text)):
		e.notifyAttendant(fmt.Sprintf("Comanda %s: %s reportou divergência nos itens, revisar na mesa.", st.OrderID, st.UserID))
		return result{directives: []Directive{textMsg(msgIncompleteOrder)}, next: StepIncompleteOrder}, nil
	default:
		return reprompt(st, confirmButtons(msgConfirmPrompt))
	}
}

func handleSplitBill(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	switch {
	case ev.ReplyID == btnSplitYes || (ev.Kind == KindText && isAffirmative(ev.Text)):
		return result{directives: []Directive{textMsg(msgSplitNumberPrompt)}, next: StepSplitBillNumber}, nil
	case ev.ReplyID == btnSplitNo || (ev.Kind == KindText && isNegative(ev.Text)):
		total := st.Order.EffectiveTotal()
		st.ExpectedShare = total
		st.UserAmount = total
		return result{directives: []Directive{tipButtons()}, next: StepExtraTip}, nil
	default:
		return reprompt(st, splitButtons())
	}
}

// maxSplitPeople bounds the roster. Beyond one long table it is a typo.
const maxSplitPeople = 20

func handleSplitBillNumber(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	n, ok := parsePeopleCount(ev.Text)
	if ev.Kind != KindText || !ok || n <= 1 {
		return reprompt(st, textMsg(msgSplitNumberAgain))
	}
	if n > maxSplitPeople {
		return reprompt(st, textMsg(msgSplitTooMany(maxSplitPeople)))
	}
	st.Split = &ledger.SplitInfo{NumberOfPeople: n}
	return result{
		directives: []Directive{textMsg(msgContactsNeeded(n - 1)), textMsg(msgContactsOnly)},
		next:       StepWaitingForContacts,
	}, nil
}

func handleWaitingForContacts(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	if ev.Kind != KindContacts || len(ev.Contacts) == 0 {
		return reprompt(st, textMsg(msgContactsOnly))
	}

	// The organizer counts as one head, so n−1 contact cards are expected.
	needed := st.Split.NumberOfPeople - 1 - len(st.Split.Participants)
	incoming := ev.Contacts
	var ds []Directive
	if len(incoming) > needed {
		ds = append(ds, textMsg(msgContactsTruncated(needed, len(incoming)-needed)))
		incoming = incoming[:needed]
	}
	for _, c := range incoming {
		st.Split.Participants = append(st.Split.Participants, ledger.Participant{
			Name:           c.Name,
			Phone:          c.Phone,
			ExpectedAmount: decimal.Zero,
			PaidAmount:     decimal.Zero,
		})
	}

	missing := st.Split.NumberOfPeople - 1 - len(st.Split.Participants)
	if missing > 0 {
		ds = append(ds, textMsg(msgContactsNeeded(missing)))
		return result{directives: ds, next: StepWaitingForContacts}, nil
	}

	// Roster complete: finalize equal shares and fan out.
	total := st.Order.EffectiveTotal()
	share := money.Share(total, st.Split.NumberOfPeople)
	res := result{next: StepExtraTip}
	others := st.Split.Participants
	st.Split.Participants = append([]ledger.Participant{{
		Name:           "Organizador(a)",
		Phone:          st.UserID,
		ExpectedAmount: share,
		PaidAmount:     decimal.Zero,
	}}, others...)
	for i := range st.Split.Participants {
		st.Split.Participants[i].ExpectedAmount = share
	}
	for _, p := range others {
		res.spawn = append(res.spawn, spawnCmd{contact: Contact{Name: p.Name, Phone: p.Phone}, share: share})
	}

	st.ExpectedShare = share
	st.UserAmount = share
	st.SplitOrigin = true

	ds = append(ds, textMsg(msgSplitReady(share)), tipButtons())
	res.directives = ds
	return res, nil
}

func handleExtraTip(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	pct := -1
	switch ev.ReplyID {
	case btnTip3:
		pct = 3
	case btnTip5:
		pct = 5
	case btnTip7:
		pct = 7
	case btnTipNone:
		pct = 0
	default:
		if ev.Kind == KindText {
			if isNegative(ev.Text) {
				pct = 0
			} else if p, ok := money.ParsePercent(ev.Text); ok {
				pct = p
			}
		}
	}
	if pct < 0 || pct > 100 {
		return reprompt(st, textMsg(msgTipAgain))
	}
	if pct > 0 {
		st.UserAmount = money.ApplyTipPercent(st.UserAmount, pct)
	}
	now := e.now()
	st.PaymentStartTime = &now
	return result{directives: msgPixInstructions(e.pixKey, st.UserAmount), next: StepWaitingForPayment}, nil
}

// handleWaitingForPayment also serves StepPaymentReminder: a proof is
// accepted in either step.
func handleWaitingForPayment(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	switch {
	case ev.Kind == KindMedia:
		return handleProofSubmission(ctx, e, st, ev)
	case ev.ReplyID == btnPayCard:
		return handleCardRequest(ctx, e, st)
	default:
		if st.CurrentStep == StepWaitingForPayment && e.paymentOverdue(st) {
			return result{directives: []Directive{textMsg(msgPaymentNudge)}, next: StepPaymentReminder}, nil
		}
		return reprompt(st, textMsg(msgWaitingForProof))
	}
}

func handleProofSubmission(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	var rec proof.Record
	err := e.retrier.Do(ctx, "leitura de comprovante", msgExtractionDelay,
		e.notifier(ctx, st.UserID),
		func(ctx context.Context) error {
			r, err := e.extractor.Extract(ctx, ev.MediaID)
			if err != nil {
				return err
			}
			rec = r
			return nil
		})
	if err != nil {
		e.notifyAttendant(fmt.Sprintf("Comanda %s: leitura de comprovante de %s falhou, atendimento manual necessário (%v)", st.OrderID, st.UserID, err))
		return result{directives: []Directive{textMsg(msgExtractionFail)}, next: StepPaymentAssistance}, nil
	}

	v := proof.Validate(rec, st.PaymentProofs, e.beneficiary, st.UserAmount)
	switch v.Classification {
	case proof.Duplicate:
		// Nothing changes: not the step, not the amounts.
		return reprompt(st, textMsg(msgDuplicateProof))

	case proof.InvalidBeneficiary:
		e.notifyAttendant(fmt.Sprintf("Comanda %s: comprovante de %s em nome de %q não confere com o restaurante.", st.OrderID, st.UserID, rec.BeneficiaryName))
		return result{directives: []Directive{textMsg(msgInvalidBeneficiary)}, next: StepPaymentInvalid}, nil

	case proof.Exact:
		e.acceptProof(st, rec)
		e.notifyAttendant(e.reconciliationSummary(ctx, st))
		return result{
			directives: []Directive{textMsg(msgPaymentConfirmed), textMsg(msgFeedbackPrompt)},
			next:       StepFeedback,
		}, nil

	case proof.Over:
		e.acceptProof(st, rec)
		excess := v.Excess
		st.ExcessAmount = &excess
		return result{directives: []Directive{overpaymentButtons(excess)}, next: StepOverpaymentDecision}, nil

	default: // proof.Under
		e.acceptProof(st, rec)
		st.UserAmount = v.Remaining
		return result{directives: []Directive{underpaymentButtons(v.Remaining)}, next: StepAwaitingUserDecision}, nil
	}
}

func handleCardRequest(ctx context.Context, e *Engine, st *State) (result, error) {
	if e.gateway == nil {
		return reprompt(st, textMsg(msgCardLinkFail))
	}
	link, err := e.gateway.CreateChargeLink(ctx, st.UserID, st.UserAmount, st.OrderID)
	if err != nil {
		e.notifyAttendant(fmt.Sprintf("Comanda %s: falha ao gerar link de cartão para %s: %v", st.OrderID, st.UserID, err))
		return reprompt(st, textMsg(msgCardLinkFail))
	}
	return reprompt(st,
		textMsg(fmt.Sprintf("Aqui está seu link para pagar %s no cartão: %s", money.FormatBRL(st.UserAmount), link)),
		textMsg(msgWaitingForProof))
}

func handleOverpaymentDecision(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	excess := decimal.Zero
	if st.ExcessAmount != nil {
		excess = *st.ExcessAmount
	}
	switch {
	case ev.ReplyID == btnExcessTip || (ev.Kind == KindText && isAffirmative(ev.Text)):
		e.notifyAttendant(e.reconciliationSummary(ctx, st) + fmt.Sprintf("Excedente de %s mantido como gorjeta.", money.FormatBRL(excess)))
		return result{
			directives: []Directive{textMsg(msgExcessAsTip(excess)), textMsg(msgFeedbackPrompt)},
			next:       StepFeedback,
		}, nil
	case ev.ReplyID == btnExcessRefund || (ev.Kind == KindText && isNegative(ev.Text)):
		e.notifyAttendant(e.reconciliationSummary(ctx, st) + fmt.Sprintf("Providenciar reembolso de %s para %s.", money.FormatBRL(excess), st.UserID))
		return result{
			directives: []Directive{textMsg(msgRefundRequested(excess)), textMsg(msgFeedbackPrompt)},
			next:       StepFeedback,
		}, nil
	default:
		return reprompt(st, overpaymentButtons(excess))
	}
}

func handleAwaitingUserDecision(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	switch {
	// A guest who just sends the second receipt skips the button.
	case ev.Kind == KindMedia:
		return handleProofSubmission(ctx, e, st, ev)
	case ev.ReplyID == btnPayRemaining || (ev.Kind == KindText && isAffirmative(ev.Text)):
		now := e.now()
		st.PaymentStartTime = &now
		return result{directives: msgPixInstructions(e.pixKey, st.UserAmount), next: StepWaitingForPayment}, nil
	case ev.ReplyID == btnAssistance || (ev.Kind == KindText && isNegative(ev.Text)):
		e.notifyAttendant(fmt.Sprintf("Comanda %s: %s pediu ajuda com pagamento parcial, restam %s.", st.OrderID, st.UserID, money.FormatBRL(st.UserAmount)))
		return result{directives: []Directive{textMsg(msgAssistance)}, next: StepPaymentAssistance}, nil
	default:
		return reprompt(st, underpaymentButtons(st.UserAmount))
	}
}

func handleFeedback(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	score, ok := parseScore(ev.Text)
	if ev.Kind != KindText || !ok {
		return reprompt(st, textMsg(msgFeedbackAgain))
	}
	st.FeedbackScore = &score
	if score < 10 {
		return result{directives: []Directive{textMsg(msgFeedbackDetail)}, next: StepFeedbackDetail}, nil
	}
	e.notifyAttendant(fmt.Sprintf("Comanda %s: NPS %d de %s.", st.OrderID, score, st.UserID))
	return result{directives: []Directive{textMsg(msgGoodbye)}, next: StepCompleted}, nil
}

func handleFeedbackDetail(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	st.FeedbackDetail = ev.Text
	score := 0
	if st.FeedbackScore != nil {
		score = *st.FeedbackScore
	}
	e.notifyAttendant(fmt.Sprintf("Comanda %s: NPS %d de %s: %q", st.OrderID, score, st.UserID, ev.Text))
	return result{directives: []Directive{textMsg(msgGoodbye)}, next: StepCompleted}, nil
}

func handleAbsorbed(ctx context.Context, e *Engine, st *State, ev Event) (result, error) {
	return reprompt(st, textMsg(msgAbsorbed))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
