package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"kardex/backend/internal/domain"
)

type LedgerReader interface {
	ListMovements(ctx context.Context, branchID string, dateRange domain.DateRange, movementType int) ([]domain.Movement, error)
}

type LedgerRead struct {
	Branch       string
	Side         string
	MovementType int
}

// Ledgers holds what a fan-out managed to read. A branch whose read failed is
// absent from its side's map and has a matching entry in Warnings.
type Ledgers struct {
	Outgoing map[string][]domain.Movement
	Incoming map[string][]domain.Movement
	Warnings []domain.BranchWarning
}

// FetchAll issues every read concurrently and waits for all of them. One
// failing read never cancels the others. A positive timeout bounds each read.
func FetchAll(ctx context.Context, reader LedgerReader, dateRange domain.DateRange, reads []LedgerRead, timeout time.Duration) Ledgers {
	ledgers := Ledgers{
		Outgoing: make(map[string][]domain.Movement),
		Incoming: make(map[string][]domain.Movement),
		Warnings: make([]domain.BranchWarning, 0),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, read := range reads {
		wg.Add(1)
		go func(read LedgerRead) {
			defer wg.Done()

			readCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				readCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			rows, err := reader.ListMovements(readCtx, read.Branch, dateRange, read.MovementType)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				ledgers.Warnings = append(ledgers.Warnings, domain.BranchWarning{
					Branch:  read.Branch,
					Side:    read.Side,
					Message: err.Error(),
				})
				return
			}
			if read.Side == domain.LedgerSideOutgoing {
				ledgers.Outgoing[read.Branch] = rows
			} else {
				ledgers.Incoming[read.Branch] = rows
			}
		}(read)
	}

	wg.Wait()

	sort.Slice(ledgers.Warnings, func(i, j int) bool {
		if ledgers.Warnings[i].Branch != ledgers.Warnings[j].Branch {
			return ledgers.Warnings[i].Branch < ledgers.Warnings[j].Branch
		}
		return ledgers.Warnings[i].Side < ledgers.Warnings[j].Side
	})
	return ledgers
}
