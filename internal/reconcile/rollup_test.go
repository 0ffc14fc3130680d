package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/backend/internal/branch"
	"kardex/backend/internal/domain"
)

func TestRollupCleanChainBalancesToZero(t *testing.T) {
	dir := branch.Default()
	outgoing := map[string][]domain.Movement{
		"mexico": {movement("mexico", 1, "10", "A", "2", "3.30", "A SUC BAJA")},
		"baja":   {movement("baja", 2, "20", "B", "5", "1.10", "A SUCURSAL #1 MEXICO")},
	}
	incoming := map[string][]domain.Movement{
		"baja":   {movement("baja", 1, "10", "A", "2", "9.99", "")},
		"mexico": {movement("mexico", 2, "20.0", "b", "5", "1.10", "")},
	}

	result := Rollup(outgoing, incoming, dir)

	assertMoney(t, "12.1", result.TotalSent)
	assertMoney(t, "12.1", result.TotalReceived)
	assertMoney(t, "0", result.Balance)
	assert.Equal(t, 0, result.DiscrepancyCount)
	require.Len(t, result.ByBranch, 2)
	assert.Equal(t, "baja", result.ByBranch[0].Branch)
	assert.Equal(t, "mexico", result.ByBranch[1].Branch)
}

func TestRollupCountsShortReceipt(t *testing.T) {
	dir := branch.Default()
	outgoing := map[string][]domain.Movement{
		"mexico": {movement("mexico", 2, "00123.0", " abc1 ", "10", "5.00", "A SUC. #2 BAJA")},
	}
	clean := Rollup(outgoing, map[string][]domain.Movement{
		"baja": {movement("baja", 3, "123", "ABC1", "10", "5.50", "")},
	}, dir)
	short := Rollup(outgoing, map[string][]domain.Movement{
		"baja": {movement("baja", 3, "123", "ABC1", "8", "5.50", "")},
	}, dir)

	assert.Equal(t, 0, clean.DiscrepancyCount)
	assert.Equal(t, clean.DiscrepancyCount+1, short.DiscrepancyCount)
	assertMoney(t, "50", short.TotalSent)
	assertMoney(t, "40", short.TotalReceived)
	assertMoney(t, "10", short.Balance)
}

func TestRollupCountsUnknownDestinationsAsSentOnly(t *testing.T) {
	dir := branch.Default()
	outgoing := map[string][]domain.Movement{
		"centro": {
			movement("centro", 1, "1", "A", "1", "7.25", "SIN REFERENCIA"),
			movement("centro", 1, "2", "A", "1", "2.75", ""),
		},
	}

	result := Rollup(outgoing, map[string][]domain.Movement{}, dir)

	assertMoney(t, "10", result.TotalSent)
	assertMoney(t, "0", result.TotalReceived)
	assertMoney(t, "10", result.Balance)
	assert.Equal(t, 0, result.DiscrepancyCount)
	require.Len(t, result.ByBranch, 1)
	assertMoney(t, "10", result.ByBranch[0].Sent)
}

func TestRollupCreditsRepeatedReceiptsOnce(t *testing.T) {
	dir := branch.Default()
	outgoing := map[string][]domain.Movement{
		"mexico": {
			movement("mexico", 2, "200", "ABC1", "5", "5.00", "A SUC. #2 BAJA"),
			movement("mexico", 2, "200", "ABC1", "5", "5.00", "A SUC. #2 BAJA"),
		},
	}
	incoming := map[string][]domain.Movement{
		"baja": {
			movement("baja", 3, "200", "ABC1", "5", "5.00", ""),
			movement("baja", 3, "200", "ABC1", "5", "5.00", ""),
		},
	}

	result := Rollup(outgoing, incoming, dir)

	assertMoney(t, "50", result.TotalSent)
	assertMoney(t, "50", result.TotalReceived)
	assertMoney(t, "0", result.Balance)
	assert.Equal(t, 0, result.DiscrepancyCount)
	require.Len(t, result.ByBranch, 1)
	assertMoney(t, "50", result.ByBranch[0].Received)

	short := Rollup(outgoing, map[string][]domain.Movement{
		"baja": {movement("baja", 3, "200", "ABC1", "8", "5.00", "")},
	}, dir)
	assertMoney(t, "40", short.TotalReceived)
	assertMoney(t, "10", short.Balance)
	assert.Equal(t, 1, short.DiscrepancyCount)
}
