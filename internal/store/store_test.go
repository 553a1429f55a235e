package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecristovao/pagbot/internal/conversation"
	"github.com/ecristovao/pagbot/internal/ledger"
	"github.com/ecristovao/pagbot/internal/orders"
	"github.com/ecristovao/pagbot/internal/proof"
)

// The stored JSON must round-trip the whole conversation shape, including
// the split ledger and accepted proofs, or the engine resumes from a
// corrupted snapshot.
func TestStateRoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 1, 20, 15, 0, 0, time.UTC)
	excess := decimal.RequireFromString("12.50")
	score := 8

	st := &conversation.State{
		UserID:      "5511999990001",
		CurrentStep: conversation.StepOverpaymentDecision,
		OrderID:     "121",
		Order: &orders.Snapshot{
			OrderID:  "121",
			Items:    []orders.Item{{Name: "Feijoada", Quantity: 2, Price: decimal.RequireFromString("45.00")}},
			Total:    decimal.RequireFromString("121.00"),
			Discount: decimal.RequireFromString("0.00"),
		},
		Split: &ledger.SplitInfo{
			NumberOfPeople: 3,
			Participants: []ledger.Participant{
				{Name: "Organizador(a)", Phone: "5511999990001", ExpectedAmount: decimal.RequireFromString("40.33"), PaidAmount: decimal.RequireFromString("52.83")},
				{Name: "Maria", Phone: "5511999990002", ExpectedAmount: decimal.RequireFromString("40.33"), PaidAmount: decimal.Zero},
			},
		},
		ExpectedShare: decimal.RequireFromString("40.33"),
		UserAmount:    decimal.RequireFromString("40.33"),
		PaidTotal:     decimal.RequireFromString("52.83"),
		PaymentProofs: []proof.Record{{
			PayerName:       "Cliente",
			Amount:          decimal.RequireFromString("52.83"),
			BeneficiaryName: "EMPORIO CRISTOVAO LTDA",
			TransactionID:   "E123",
			PaymentDateTime: start,
		}},
		PaymentStartTime: &start,
		ExcessAmount:     &excess,
		FeedbackScore:    &score,
		SplitOrigin:      true,
		UpdatedAt:        start,
	}

	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := unmarshalState(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.UserID != st.UserID || got.CurrentStep != st.CurrentStep || got.OrderID != st.OrderID {
		t.Errorf("identity fields lost: %+v", got)
	}
	if !got.UserAmount.Equal(st.UserAmount) || !got.PaidTotal.Equal(st.PaidTotal) {
		t.Errorf("amounts lost: userAmount=%s paidTotal=%s", got.UserAmount, got.PaidTotal)
	}
	if got.ExcessAmount == nil || !got.ExcessAmount.Equal(excess) {
		t.Errorf("excess lost: %v", got.ExcessAmount)
	}
	if got.Split == nil || len(got.Split.Participants) != 2 {
		t.Fatalf("split lost: %+v", got.Split)
	}
	if !got.Split.Participants[0].PaidAmount.Equal(decimal.RequireFromString("52.83")) {
		t.Errorf("participant paid amount lost: %s", got.Split.Participants[0].PaidAmount)
	}
	if len(got.PaymentProofs) != 1 || got.PaymentProofs[0].TransactionID != "E123" {
		t.Errorf("proofs lost: %+v", got.PaymentProofs)
	}
	if got.PaymentStartTime == nil || !got.PaymentStartTime.Equal(start) {
		t.Errorf("payment start time lost: %v", got.PaymentStartTime)
	}
	if got.FeedbackScore == nil || *got.FeedbackScore != score {
		t.Errorf("feedback score lost: %v", got.FeedbackScore)
	}
	if !got.SplitOrigin {
		t.Error("split origin flag lost")
	}
}
