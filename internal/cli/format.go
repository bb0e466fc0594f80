package cli

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatMoney rounds to the currency's minor unit and formats with its
// symbol. Unknown codes fall back to USD.
func formatMoney(d decimal.Decimal, code string) string {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		cur = money.GetCurrency(money.USD)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// signedMoney prefixes gains with "+".
func signedMoney(d decimal.Decimal, code string) string {
	s := formatMoney(d, code)
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

func formatPercent(d decimal.Decimal) string {
	s := d.StringFixed(2) + "%"
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

func formatQuantity(d decimal.Decimal) string {
	return d.String()
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline draws values scaled between their min and max.
func sparkline(values []decimal.Decimal) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = decimal.Min(lo, v)
		hi = decimal.Max(hi, v)
	}
	span := hi.Sub(lo)
	top := decimal.NewFromInt(int64(len(sparkBlocks) - 1))
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if span.IsPositive() {
			idx = int(v.Sub(lo).Mul(top).Div(span).Round(0).IntPart())
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

// mdCell keeps table cells from breaking the markdown table.
func mdCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
