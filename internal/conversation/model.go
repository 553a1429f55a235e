package conversation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecristovao/pagbot/internal/ledger"
	"github.com/ecristovao/pagbot/internal/orders"
	"github.com/ecristovao/pagbot/internal/proof"
)

// State is one guest's conversation. It is owned exclusively by the engine:
// mutation always happens as load → apply transition → persist, never
// through a shared reference.
type State struct {
	UserID      string          `json:"user_id"`
	CurrentStep Step            `json:"current_step"`
	OrderID     string          `json:"order_id,omitempty"`
	Order       *orders.Snapshot `json:"order,omitempty"`

	Split *ledger.SplitInfo `json:"split,omitempty"`

	// ExpectedShare is this user's base share (full total when undivided),
	// fixed once known. UserAmount is what is currently owed and mutates as
	// tips and partial payments apply. PaidTotal accumulates accepted proofs.
	ExpectedShare decimal.Decimal `json:"expected_share"`
	UserAmount    decimal.Decimal `json:"user_amount"`
	PaidTotal     decimal.Decimal `json:"paid_total"`

	PaymentProofs    []proof.Record   `json:"payment_proofs,omitempty"`
	PaymentStartTime *time.Time       `json:"payment_start_time,omitempty"`
	ExcessAmount     *decimal.Decimal `json:"excess_amount,omitempty"`

	FeedbackScore  *int   `json:"feedback_score,omitempty"`
	FeedbackDetail string `json:"feedback_detail,omitempty"`

	// SplitOrigin is true for the conversation that set up the split and
	// collected the contacts.
	SplitOrigin bool `json:"split_origin,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func newState(userID string) *State {
	return &State{
		UserID:        userID,
		CurrentStep:   StepInitial,
		ExpectedShare: decimal.Zero,
		UserAmount:    decimal.Zero,
		PaidTotal:     decimal.Zero,
	}
}
