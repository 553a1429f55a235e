// Package proof validates extracted PIX payment receipts against the
// expected beneficiary and the amount the guest owes.
package proof

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecristovao/pagbot/internal/money"
)

// Record is one extracted payment receipt. Immutable once accepted.
type Record struct {
	PayerName           string          `json:"payer_name"`
	PayerDocument       string          `json:"payer_document"`
	PayerBank           string          `json:"payer_bank"`
	Amount              decimal.Decimal `json:"amount"`
	PaymentDateTime     time.Time       `json:"payment_datetime"`
	BeneficiaryName     string          `json:"beneficiary_name"`
	BeneficiaryDocument string          `json:"beneficiary_document"`
	BeneficiaryBank     string          `json:"beneficiary_bank"`
	TransactionID       string          `json:"transaction_id"`
}

// Beneficiary is the restaurant's identity a receipt must name.
type Beneficiary struct {
	LegalName string
	Document  string
}

type Classification int

const (
	Duplicate Classification = iota
	InvalidBeneficiary
	Exact
	Over
	Under
)

func (c Classification) String() string {
	switch c {
	case Duplicate:
		return "duplicate"
	case InvalidBeneficiary:
		return "invalid-beneficiary"
	case Exact:
		return "exact"
	case Over:
		return "over"
	case Under:
		return "under"
	}
	return "unknown"
}

// Result of validating a receipt.
type Result struct {
	Classification Classification
	// Excess is set for Over: amount − owed.
	Excess decimal.Decimal
	// Remaining is set for Under: owed − amount.
	Remaining decimal.Decimal
}

// Validate runs the reconciliation algorithm:
//  1. duplicate transaction id → Duplicate, nothing else checked
//  2. beneficiary mismatch → InvalidBeneficiary, no amount comparison
//  3. amount vs owed → Exact / Over / Under
func Validate(rec Record, previous []Record, expected Beneficiary, owed decimal.Decimal) Result {
	for _, p := range previous {
		if p.TransactionID != "" && p.TransactionID == rec.TransactionID {
			return Result{Classification: Duplicate}
		}
	}

	if !beneficiaryMatches(rec, expected) {
		return Result{Classification: InvalidBeneficiary}
	}

	amount := money.Round2(rec.Amount)
	owed = money.Round2(owed)
	switch {
	case amount.Equal(owed):
		return Result{Classification: Exact}
	case amount.GreaterThan(owed):
		return Result{Classification: Over, Excess: amount.Sub(owed)}
	default:
		return Result{Classification: Under, Remaining: owed.Sub(amount)}
	}
}

// beneficiaryMatches accepts a receipt whose beneficiary name contains the
// expected legal name (receipts often carry an extra "LTDA"/"ME" suffix) or
// whose beneficiary document equals the expected one exactly.
func beneficiaryMatches(rec Record, expected Beneficiary) bool {
	name := normalize(rec.BeneficiaryName)
	legal := normalize(expected.LegalName)
	if legal != "" && strings.Contains(name, legal) {
		return true
	}
	if expected.Document != "" && onlyDigits(rec.BeneficiaryDocument) == onlyDigits(expected.Document) {
		return true
	}
	return false
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
