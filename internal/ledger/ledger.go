// Package ledger tracks who owes what on a split bill.
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ecristovao/pagbot/internal/money"
)

var ErrParticipantNotFound = errors.New("participant not found")

// Participant is one co-payer of an order. ExpectedAmount is fixed once the
// split size is finalized; PaidAmount only grows, and only through validated
// proofs attributed to this participant.
type Participant struct {
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
}

func (p Participant) Settled() bool {
	return p.PaidAmount.GreaterThanOrEqual(p.ExpectedAmount)
}

// SplitInfo is the split-bill ledger carried by a conversation.
type SplitInfo struct {
	NumberOfPeople int           `json:"number_of_people"`
	Participants   []Participant `json:"participants"`
}

// NewSplit builds the ledger for an equal split of total among the given
// contacts. Each head owes the same rounded share; the rounding remainder is
// intentionally not redistributed.
func NewSplit(total decimal.Decimal, contacts []Participant) *SplitInfo {
	n := len(contacts)
	share := money.Share(total, n)
	participants := make([]Participant, 0, n)
	for _, c := range contacts {
		participants = append(participants, Participant{
			Name:           c.Name,
			Phone:          c.Phone,
			ExpectedAmount: share,
			PaidAmount:     decimal.Zero,
		})
	}
	return &SplitInfo{NumberOfPeople: n, Participants: participants}
}

// Credit adds a validated payment to the participant with the given phone.
// Amounts are never subtracted.
func (s *SplitInfo) Credit(phone string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("credit must not be negative: %s", amount)
	}
	for i := range s.Participants {
		if s.Participants[i].Phone == phone {
			s.Participants[i].PaidAmount = money.Round2(s.Participants[i].PaidAmount.Add(amount))
			return nil
		}
	}
	return ErrParticipantNotFound
}

// Find returns the participant with the given phone, if any.
func (s *SplitInfo) Find(phone string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.Phone == phone {
			return p, true
		}
	}
	return Participant{}, false
}

// AllSettled reports whether every participant covered their own share.
// One participant's surplus never offsets another's shortfall.
func (s *SplitInfo) AllSettled() bool {
	if s == nil || len(s.Participants) == 0 {
		return false
	}
	for _, p := range s.Participants {
		if !p.Settled() {
			return false
		}
	}
	return true
}

// OrderPaid is the aggregate "order is paid" decision.
// Undivided orders are paid once cumulative payments reach the total;
// split orders only once every participant covered their share.
func OrderPaid(total decimal.Decimal, cumulative decimal.Decimal, split *SplitInfo) bool {
	if split != nil && len(split.Participants) > 0 {
		return split.AllSettled()
	}
	return money.Round2(cumulative).GreaterThanOrEqual(money.Round2(total))
}

// SplitSummary renders the per-participant reconciliation the attendants
// read when a split payment lands.
func (s *SplitInfo) SplitSummary(orderID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Comanda %s — divisão em %d:\n", orderID, s.NumberOfPeople)
	for _, p := range s.Participants {
		status := "Pendente"
		if p.Settled() {
			status = "Pago"
		}
		fmt.Fprintf(&b, "• %s (%s): esperado %s, pago %s — %s\n",
			p.Name, p.Phone, money.FormatBRL(p.ExpectedAmount), money.FormatBRL(p.PaidAmount), status)
	}
	return b.String()
}

// SingleSummary renders the single-payer summary: paid in full, partial, or
// with excess.
func SingleSummary(orderID string, expected, paid decimal.Decimal) string {
	expected = money.Round2(expected)
	paid = money.Round2(paid)
	switch {
	case paid.Equal(expected):
		return fmt.Sprintf("Comanda %s paga integralmente: %s", orderID, money.FormatBRL(paid))
	case paid.GreaterThan(expected):
		return fmt.Sprintf("Comanda %s paga com excedente: %s recebido, %s esperado (excedente %s)",
			orderID, money.FormatBRL(paid), money.FormatBRL(expected), money.FormatBRL(paid.Sub(expected)))
	default:
		return fmt.Sprintf("Comanda %s com pagamento parcial: %s recebido, restam %s",
			orderID, money.FormatBRL(paid), money.FormatBRL(expected.Sub(paid)))
	}
}
