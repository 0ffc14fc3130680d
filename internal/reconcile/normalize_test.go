package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeFolio(t *testing.T) {
	cases := map[string]string{
		"1234.0":   "1234",
		"1234":     "1234",
		"00123.0":  "123",
		" 123.00 ": "123",
		"123.":     "123",
		"0000":     "0",
		"a-77.0":   "A-77",
		"12.5.3":   "12",
		"":         "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeFolio(raw), "raw %q", raw)
	}
}

func TestNormalizeFolioIsIdempotent(t *testing.T) {
	for _, raw := range []string{"1234.0", "00123.0", "A-77.0", "12.5.3", "  9 ", "0.0", "X.Y"} {
		once := NormalizeFolio(raw)
		assert.Equal(t, once, NormalizeFolio(once), "raw %q", raw)
	}
	assert.Equal(t, NormalizeFolio("1234.0"), NormalizeFolio("1234"))
}

func TestNormalizeItemCode(t *testing.T) {
	assert.Equal(t, "ABC1", NormalizeItemCode(" abc1 "))
	assert.Equal(t, NormalizeItemCode("ABC1"), NormalizeItemCode("\tAbc1\n"))
}

func TestParseAmountTreatsMalformedAsZero(t *testing.T) {
	value, ok := ParseAmount("12.50")
	assert.True(t, ok)
	assert.True(t, value.Equal(decimal.RequireFromString("12.5")))

	value, ok = ParseAmount("1,250.75")
	assert.True(t, ok)
	assert.True(t, value.Equal(decimal.RequireFromString("1250.75")))

	value, ok = ParseAmount("N/A")
	assert.False(t, ok)
	assert.True(t, value.IsZero())

	value, ok = ParseAmount("")
	assert.True(t, ok)
	assert.True(t, value.IsZero())
}

func TestQuantitiesDifferBoundary(t *testing.T) {
	ten := decimal.NewFromInt(10)
	assert.False(t, QuantitiesDiffer(ten, decimal.RequireFromString("9.99")), "a gap of exactly 0.01 is tolerated")
	assert.True(t, QuantitiesDiffer(ten, decimal.RequireFromString("9.989")), "a gap of 0.011 is a discrepancy")
	assert.False(t, QuantitiesDiffer(decimal.NewFromInt(-10), ten), "sign is ignored")
}

func TestAddMoneyRoundsEachStep(t *testing.T) {
	total := decimal.Zero
	for i := 0; i < 3; i++ {
		total = addMoney(total, decimal.RequireFromString("0.333"))
	}
	assert.Equal(t, "0.99", total.StringFixed(2))
}
