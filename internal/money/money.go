// Package money holds the decimal arithmetic used across the payment flow.
// Every amount is BRL with two-decimal rounding; comparisons always go
// through the rounded value.
package money

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var amountPattern = regexp.MustCompile(`(\d+(?:[.,]\d{1,2})?)`)

// Round2 rounds to two decimal places (banker's rounding is NOT used;
// half away from zero, matching bank receipt amounts).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Share computes the equal per-participant share of a total.
// The remainder is not redistributed: 121.00 split by 3 yields 40.33 per
// head, and 3×40.33 = 120.99. Attendants reconcile the missing cent
// manually, so the drift is kept as-is.
func Share(total decimal.Decimal, numberOfPeople int) decimal.Decimal {
	if numberOfPeople <= 0 {
		return decimal.Zero
	}
	return Round2(total.Div(decimal.NewFromInt(int64(numberOfPeople))))
}

// ApplyTipPercent returns amount * (1 + pct/100), rounded.
func ApplyTipPercent(amount decimal.Decimal, pct int) decimal.Decimal {
	factor := decimal.NewFromInt(100 + int64(pct)).Div(decimal.NewFromInt(100))
	return Round2(amount.Mul(factor))
}

// ParseAmount extracts a BRL amount from free text ("R$ 40,33", "40.33").
func ParseAmount(text string) (decimal.Decimal, bool) {
	m := amountPattern.FindString(strings.ReplaceAll(text, " ", ""))
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", "."))
	if err != nil {
		return decimal.Zero, false
	}
	return Round2(d), true
}

// ParsePercent extracts a whole tip percentage from text like "5", "5%",
// "7 por cento". Returns ok=false when no number is present.
func ParsePercent(text string) (int, bool) {
	t := strings.TrimSpace(text)
	t = strings.TrimSuffix(t, "%")
	fields := strings.FieldsFunc(t, func(r rune) bool {
		return r < '0' || r > '9'
	})
	for _, f := range fields {
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

// FormatBRL renders an amount the way the bot speaks it: "R$ 40,33".
func FormatBRL(d decimal.Decimal) string {
	return fmt.Sprintf("R$ %s", strings.ReplaceAll(Round2(d).StringFixed(2), ".", ","))
}
