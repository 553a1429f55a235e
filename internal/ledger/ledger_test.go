package ledger

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func split(total string, phones ...string) *SplitInfo {
	contacts := make([]Participant, 0, len(phones))
	for _, ph := range phones {
		contacts = append(contacts, Participant{Name: "P" + ph, Phone: ph})
	}
	return NewSplit(decimal.RequireFromString(total), contacts)
}

func TestNewSplitEqualShares(t *testing.T) {
	s := split("121.00", "1", "2", "3")
	for _, p := range s.Participants {
		if p.ExpectedAmount.String() != "40.33" {
			t.Errorf("participant %s expected %s, want 40.33", p.Phone, p.ExpectedAmount)
		}
		if !p.PaidAmount.IsZero() {
			t.Errorf("participant %s starts with paid %s", p.Phone, p.PaidAmount)
		}
	}
}

func TestCredit(t *testing.T) {
	s := split("120.00", "1", "2")

	if err := s.Credit("1", decimal.RequireFromString("60.00")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	p, _ := s.Find("1")
	if p.PaidAmount.String() != "60" {
		t.Errorf("paid = %s, want 60", p.PaidAmount)
	}

	if err := s.Credit("9", decimal.RequireFromString("1.00")); err != ErrParticipantNotFound {
		t.Errorf("Credit unknown phone: err = %v, want ErrParticipantNotFound", err)
	}
	if err := s.Credit("1", decimal.RequireFromString("-1.00")); err == nil {
		t.Error("Credit negative amount: want error")
	}
}

func TestAllSettledSurplusDoesNotOffset(t *testing.T) {
	s := split("120.00", "1", "2")

	// Participant 1 overpays massively; participant 2 pays nothing.
	if err := s.Credit("1", decimal.RequireFromString("120.00")); err != nil {
		t.Fatal(err)
	}
	if s.AllSettled() {
		t.Error("AllSettled true while participant 2 is short")
	}

	if err := s.Credit("2", decimal.RequireFromString("60.00")); err != nil {
		t.Fatal(err)
	}
	if !s.AllSettled() {
		t.Error("AllSettled false after everyone covered their share")
	}
}

func TestOrderPaid(t *testing.T) {
	total := decimal.RequireFromString("100.00")

	tests := []struct {
		name       string
		cumulative string
		split      *SplitInfo
		want       bool
	}{
		{name: "undivided short", cumulative: "99.99", want: false},
		{name: "undivided exact", cumulative: "100.00", want: true},
		{name: "undivided over", cumulative: "110.00", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OrderPaid(total, decimal.RequireFromString(tt.cumulative), tt.split)
			if got != tt.want {
				t.Errorf("OrderPaid = %v, want %v", got, tt.want)
			}
		})
	}

	// Split mode ignores cumulative and looks at each head.
	s := split("100.00", "1", "2")
	if OrderPaid(total, decimal.RequireFromString("100.00"), s) {
		t.Error("split OrderPaid true with no participant payments")
	}
	s.Credit("1", decimal.RequireFromString("50.00"))
	s.Credit("2", decimal.RequireFromString("50.00"))
	if !OrderPaid(total, decimal.Zero, s) {
		t.Error("split OrderPaid false with all shares covered")
	}
}

func TestSplitSummary(t *testing.T) {
	s := split("120.00", "1", "2")
	s.Credit("1", decimal.RequireFromString("60.00"))

	got := s.SplitSummary("42")
	if !strings.Contains(got, "Comanda 42") {
		t.Errorf("summary missing order id: %q", got)
	}
	if !strings.Contains(got, "Pago") || !strings.Contains(got, "Pendente") {
		t.Errorf("summary should show one paid and one pending: %q", got)
	}
}

func TestSingleSummary(t *testing.T) {
	expected := decimal.RequireFromString("100.00")

	tests := []struct {
		paid string
		frag string
	}{
		{paid: "100.00", frag: "integralmente"},
		{paid: "120.00", frag: "excedente"},
		{paid: "80.00", frag: "parcial"},
	}
	for _, tt := range tests {
		got := SingleSummary("42", expected, decimal.RequireFromString(tt.paid))
		if !strings.Contains(got, tt.frag) {
			t.Errorf("SingleSummary(paid=%s) = %q, want fragment %q", tt.paid, got, tt.frag)
		}
	}
}
