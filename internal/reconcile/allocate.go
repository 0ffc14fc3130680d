package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"kardex/backend/internal/domain"
)

// routedLine is an outgoing row whose destination resolved to another branch.
type routedLine struct {
	origin      string
	destination string
	movement    domain.Movement
	key         transferKey
}

// allocation is the share of a summed receipt credited to one outgoing line.
type allocation struct {
	quantity decimal.Decimal
	unitCost decimal.Decimal
	matched  bool
}

func routeOutgoing(origin string, outgoing []domain.Movement, resolver Resolver) ([]routedLine, []domain.Movement) {
	routed := make([]routedLine, 0, len(outgoing))
	unresolved := make([]domain.Movement, 0)
	for _, out := range outgoing {
		destination := resolver.ResolveDestination(out.Reference)
		if destination == domain.UnknownBranch || destination == origin {
			unresolved = append(unresolved, out)
			continue
		}
		routed = append(routed, routedLine{
			origin:      origin,
			destination: destination,
			movement:    out,
			key: transferKey{
				folio:  NormalizeFolio(out.Folio),
				item:   NormalizeItemCode(out.ItemCode),
				branch: destination,
			},
		})
	}
	return routed, unresolved
}

// allocateReceipts splits each summed receipt across the outgoing lines that
// share its key, oldest line first. A line takes at most its own quantity and
// the last line of a key takes whatever remains, so every received unit is
// credited exactly once.
func allocateReceipts(lines []routedLine, index map[transferKey]receipt) []allocation {
	allocs := make([]allocation, len(lines))
	groups := make(map[transferKey][]int)
	for i, line := range lines {
		groups[line.key] = append(groups[line.key], i)
	}

	for key, members := range groups {
		got, ok := index[key]
		if !ok {
			for _, i := range members {
				allocs[i] = allocation{quantity: decimal.Zero, unitCost: decimal.Zero}
			}
			continue
		}

		sort.SliceStable(members, func(a, b int) bool {
			return lines[members[a]].movement.Date.Before(lines[members[b]].movement.Date)
		})

		remaining := got.quantity
		for n, i := range members {
			take := remaining
			if n < len(members)-1 {
				take = decimal.Min(remaining, lines[i].movement.Quantity.Abs())
			}
			remaining = remaining.Sub(take)
			allocs[i] = allocation{quantity: take, unitCost: got.unitCost, matched: true}
		}
	}
	return allocs
}
