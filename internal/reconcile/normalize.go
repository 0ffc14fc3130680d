package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
)

// QuantityTolerance absorbs float noise in quantities stored as decimal text.
var QuantityTolerance = decimal.New(1, -2)

// NormalizeFolio makes "00123.0", "123.00" and " 123 " compare equal.
func NormalizeFolio(raw string) string {
	folio := strings.ToUpper(strings.TrimSpace(raw))
	for {
		idx := strings.LastIndexByte(folio, '.')
		if idx < 0 {
			break
		}
		suffix := folio[idx+1:]
		if suffix != "" && !isDigits(suffix) {
			break
		}
		folio = folio[:idx]
	}
	if isDigits(folio) && folio != "" {
		folio = strings.TrimLeft(folio, "0")
		if folio == "" {
			folio = "0"
		}
	}
	return folio
}

func NormalizeItemCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ParseAmount reads a numeric ledger field. Text that is not a number reads as
// zero with ok false; empty text is a clean zero.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, true
	}
	trimmed = strings.ReplaceAll(trimmed, ",", "")
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

func RoundMoney(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// addMoney accumulates and rounds on every step, mirroring the stored precision.
func addMoney(total decimal.Decimal, amount decimal.Decimal) decimal.Decimal {
	return RoundMoney(total.Add(amount))
}

// QuantitiesDiffer compares absolute quantities; a gap of exactly the tolerance is not a discrepancy.
func QuantitiesDiffer(sent decimal.Decimal, received decimal.Decimal) bool {
	return sent.Abs().Sub(received.Abs()).Abs().GreaterThan(QuantityTolerance)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
