package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"kardex/backend/internal/domain"
)

type RollupResult struct {
	TotalSent        decimal.Decimal
	TotalReceived    decimal.Decimal
	Balance          decimal.Decimal
	DiscrepancyCount int
	ByBranch         []domain.BranchTotals
}

// Rollup computes chain-wide totals in one pass over every branch's outgoing
// and incoming rows. A ledger missing from either map only removes its own rows.
func Rollup(outgoingByBranch map[string][]domain.Movement, incomingByBranch map[string][]domain.Movement, resolver Resolver) RollupResult {
	index := indexIncoming(incomingByBranch)

	origins := make([]string, 0, len(outgoingByBranch))
	for origin := range outgoingByBranch {
		origins = append(origins, origin)
	}
	sort.Strings(origins)

	result := RollupResult{
		TotalSent:     decimal.Zero,
		TotalReceived: decimal.Zero,
		ByBranch:      make([]domain.BranchTotals, 0, len(origins)),
	}

	position := make(map[string]int, len(origins))
	routed := make([]routedLine, 0)
	for _, origin := range origins {
		totals := domain.BranchTotals{Branch: origin, Sent: decimal.Zero, Received: decimal.Zero}
		for _, out := range outgoingByBranch[origin] {
			value := lineValue(out)
			totals.Sent = addMoney(totals.Sent, value)
			result.TotalSent = addMoney(result.TotalSent, value)
		}
		lines, _ := routeOutgoing(origin, outgoingByBranch[origin], resolver)
		routed = append(routed, lines...)

		position[origin] = len(result.ByBranch)
		result.ByBranch = append(result.ByBranch, totals)
	}

	// Receipts are shared across origins: the incoming row does not say who sent it.
	allocs := allocateReceipts(routed, index)
	for i, line := range routed {
		pair := buildPair(line, allocs[i])
		totals := &result.ByBranch[position[line.origin]]
		totals.Received = addMoney(totals.Received, pair.ReceivedValue)
		result.TotalReceived = addMoney(result.TotalReceived, pair.ReceivedValue)
		if pair.QuantityDiscrepancy {
			totals.DiscrepancyCount++
			result.DiscrepancyCount++
		}
	}

	result.Balance = RoundMoney(result.TotalSent.Sub(result.TotalReceived))
	return result
}
