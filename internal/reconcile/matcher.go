package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"kardex/backend/internal/domain"
)

// Resolver maps a movement reference to a destination branch id.
type Resolver interface {
	ResolveDestination(reference string) string
}

type MatchResult struct {
	Pairs            []domain.TransferPair
	Unresolved       []domain.Movement
	TotalSent        decimal.Decimal
	TotalReceived    decimal.Decimal
	Balance          decimal.Decimal
	DiscrepancyCount int
}

type transferKey struct {
	folio  string
	item   string
	branch string
}

type receipt struct {
	quantity decimal.Decimal
	unitCost decimal.Decimal
}

// indexIncoming keys every incoming row by the ledger it was read from, not by
// anything written on the row itself. Repeated lines of one folio/item are summed.
func indexIncoming(incomingByBranch map[string][]domain.Movement) map[transferKey]receipt {
	size := 0
	for _, rows := range incomingByBranch {
		size += len(rows)
	}

	index := make(map[transferKey]receipt, size)
	for ledger, rows := range incomingByBranch {
		for _, row := range rows {
			k := transferKey{
				folio:  NormalizeFolio(row.Folio),
				item:   NormalizeItemCode(row.ItemCode),
				branch: ledger,
			}
			current := index[k]
			current.quantity = current.quantity.Add(row.Quantity.Abs())
			if !row.UnitCost.IsZero() {
				current.unitCost = row.UnitCost
			}
			index[k] = current
		}
	}
	return index
}

// Match pairs the origin's outgoing transfers with the incoming rows read from
// each destination ledger. Ledgers missing from incomingByBranch (for example
// because their read failed) simply leave their pairs unmatched.
func Match(origin string, outgoing []domain.Movement, incomingByBranch map[string][]domain.Movement, resolver Resolver) MatchResult {
	index := indexIncoming(incomingByBranch)
	routed, unresolved := routeOutgoing(origin, outgoing, resolver)
	allocs := allocateReceipts(routed, index)

	result := MatchResult{
		Pairs:         make([]domain.TransferPair, 0, len(routed)),
		Unresolved:    unresolved,
		TotalSent:     decimal.Zero,
		TotalReceived: decimal.Zero,
	}

	for _, out := range outgoing {
		result.TotalSent = addMoney(result.TotalSent, lineValue(out))
	}

	for i, line := range routed {
		pair := buildPair(line, allocs[i])
		result.TotalReceived = addMoney(result.TotalReceived, pair.ReceivedValue)
		if pair.QuantityDiscrepancy {
			result.DiscrepancyCount++
		}
		result.Pairs = append(result.Pairs, pair)
	}

	result.Balance = RoundMoney(result.TotalSent.Sub(result.TotalReceived))
	sortMostRecentFirst(result.Pairs)
	return result
}

func lineValue(out domain.Movement) decimal.Decimal {
	return RoundMoney(out.Quantity.Abs().Mul(out.UnitCost))
}

func buildPair(line routedLine, alloc allocation) domain.TransferPair {
	out := line.movement
	pair := domain.TransferPair{
		Origin:              line.origin,
		Destination:         line.destination,
		Date:                out.Date,
		Folio:               line.key.folio,
		ItemCode:            line.key.item,
		Reference:           out.Reference,
		OriginQuantity:      out.Quantity.Abs(),
		OriginUnitCost:      out.UnitCost,
		DestinationQuantity: alloc.quantity,
		DestinationUnitCost: alloc.unitCost,
		Matched:             alloc.matched,
		OriginValue:         lineValue(out),
	}

	// priced at the origin's unit cost
	pair.ReceivedValue = RoundMoney(pair.DestinationQuantity.Mul(out.UnitCost))
	pair.ValueDiscrepancy = RoundMoney(pair.OriginValue.Sub(pair.ReceivedValue))
	pair.QuantityDiscrepancy = QuantitiesDiffer(pair.OriginQuantity, pair.DestinationQuantity)
	return pair
}

func sortMostRecentFirst(pairs []domain.TransferPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if !pairs[i].Date.Equal(pairs[j].Date) {
			return pairs[i].Date.After(pairs[j].Date)
		}
		if pairs[i].Folio != pairs[j].Folio {
			return pairs[i].Folio < pairs[j].Folio
		}
		return pairs[i].ItemCode < pairs[j].ItemCode
	})
}
