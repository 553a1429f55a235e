package extract

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseRecord(t *testing.T) {
	content := `{
		"payer_name": "Maria Souza",
		"beneficiary_name": "EMPORIO CRISTOVAO LTDA",
		"beneficiary_document": "12.345.678/0001-90",
		"amount": "40.33",
		"transaction_id": "E60701190202503012015abc",
		"payment_datetime": "2025-03-01T20:15:00-03:00"
	}`

	rec, err := parseRecord(content)
	if err != nil {
		t.Fatalf("parseRecord: %v", err)
	}
	if rec.PayerName != "Maria Souza" {
		t.Errorf("payer = %q", rec.PayerName)
	}
	if !rec.Amount.Equal(decimal.RequireFromString("40.33")) {
		t.Errorf("amount = %s", rec.Amount)
	}
	if rec.TransactionID != "E60701190202503012015abc" {
		t.Errorf("txid = %q", rec.TransactionID)
	}
	if rec.PaymentDateTime.IsZero() {
		t.Error("payment datetime not parsed")
	}
}

func TestParseRecordCommaAmount(t *testing.T) {
	rec, err := parseRecord(`{"amount": "R$ 40,33", "transaction_id": "E2"}`)
	if err != nil {
		t.Fatalf("parseRecord: %v", err)
	}
	if !rec.Amount.Equal(decimal.RequireFromString("40.33")) {
		t.Errorf("amount = %s, want 40.33", rec.Amount)
	}
}

func TestParseRecordRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "desculpe, não consegui ler a imagem"},
		{"empty amount", `{"amount": "", "transaction_id": "E1"}`},
		{"zero amount", `{"amount": "0", "transaction_id": "E1"}`},
		{"missing txid", `{"amount": "40.33", "transaction_id": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseRecord(tt.content); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
