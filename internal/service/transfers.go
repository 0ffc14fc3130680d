package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"kardex/backend/internal/domain"
	"kardex/backend/internal/reconcile"
	"kardex/backend/internal/store"
	"kardex/backend/internal/xid"
)

const (
	viewReconciliation = "reconciliation"
	viewSummary        = "summary"
)

// ReconcileTransfers matches the origin's outgoing transfers against the
// incoming ledgers of every other branch. Explicit nil range means the active
// reporting period. Branch read failures become warnings on the report.
func (s *Service) ReconcileTransfers(ctx context.Context, origin string, explicit *domain.DateRange) (*domain.TransferReport, error) {
	origin = strings.ToLower(strings.TrimSpace(origin))
	if !s.dir.Valid(origin) {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownBranch, origin)
	}
	rng, err := s.resolveRange(ctx, explicit)
	if err != nil {
		return nil, err
	}

	run := s.scopes.begin(ctx, scopeKey(ctx, viewReconciliation))
	defer run.done()

	reads := []reconcile.LedgerRead{{
		Branch:       origin,
		Side:         domain.LedgerSideOutgoing,
		MovementType: s.dir.OutgoingType(),
	}}
	for _, other := range s.dir.Others(origin) {
		reads = append(reads, reconcile.LedgerRead{
			Branch:       other,
			Side:         domain.LedgerSideIncoming,
			MovementType: s.dir.IncomingType(),
		})
	}

	runID := xid.New("rec")
	entry := s.log.WithFields(logrus.Fields{"run_id": runID, "origin": origin})
	started := s.now()

	ledgers := reconcile.FetchAll(run.ctx, s.ledger, rng, reads, s.readTimeout)
	if !run.current() {
		entry.Info("reconciliation superseded, result discarded")
		return nil, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logWarnings(entry, ledgers.Warnings)

	result := reconcile.Match(origin, ledgers.Outgoing[origin], ledgers.Incoming, s.dir)
	report := &domain.TransferReport{
		RunID:            runID,
		RequestedBy:      requester(ctx),
		Origin:           origin,
		Range:            rng,
		Pairs:            result.Pairs,
		Unresolved:       result.Unresolved,
		TotalSent:        result.TotalSent,
		TotalReceived:    result.TotalReceived,
		Balance:          result.Balance,
		DiscrepancyCount: result.DiscrepancyCount,
		Warnings:         ledgers.Warnings,
		GeneratedAt:      s.now().UTC(),
	}

	if err := s.reports.Set(ctx, runID, report, s.reportTTL); err != nil {
		entry.WithError(err).Warn("failed to archive reconciliation report")
	}

	entry.WithFields(logrus.Fields{
		"pairs":         len(report.Pairs),
		"unresolved":    len(report.Unresolved),
		"discrepancies": report.DiscrepancyCount,
		"warnings":      len(report.Warnings),
		"balance":       report.Balance.StringFixed(2),
		"duration_ms":   s.now().Sub(started).Milliseconds(),
	}).Info("reconciliation completed")
	return report, nil
}

// TransferSummary recomputes chain-wide totals from every branch ledger.
func (s *Service) TransferSummary(ctx context.Context, explicit *domain.DateRange) (*domain.TransferSummary, error) {
	rng, err := s.resolveRange(ctx, explicit)
	if err != nil {
		return nil, err
	}

	run := s.scopes.begin(ctx, scopeKey(ctx, viewSummary))
	defer run.done()

	ids := s.dir.IDs()
	reads := make([]reconcile.LedgerRead, 0, 2*len(ids))
	for _, id := range ids {
		reads = append(reads,
			reconcile.LedgerRead{Branch: id, Side: domain.LedgerSideOutgoing, MovementType: s.dir.OutgoingType()},
			reconcile.LedgerRead{Branch: id, Side: domain.LedgerSideIncoming, MovementType: s.dir.IncomingType()},
		)
	}

	entry := s.log.WithField("view", viewSummary)
	started := s.now()

	ledgers := reconcile.FetchAll(run.ctx, s.ledger, rng, reads, s.readTimeout)
	if !run.current() {
		entry.Info("summary superseded, result discarded")
		return nil, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logWarnings(entry, ledgers.Warnings)

	result := reconcile.Rollup(ledgers.Outgoing, ledgers.Incoming, s.dir)
	summary := &domain.TransferSummary{
		Range:            rng,
		TotalSent:        result.TotalSent,
		TotalReceived:    result.TotalReceived,
		Balance:          result.Balance,
		DiscrepancyCount: result.DiscrepancyCount,
		ByBranch:         result.ByBranch,
		Warnings:         ledgers.Warnings,
		GeneratedAt:      s.now().UTC(),
	}

	entry.WithFields(logrus.Fields{
		"discrepancies": summary.DiscrepancyCount,
		"warnings":      len(summary.Warnings),
		"balance":       summary.Balance.StringFixed(2),
		"duration_ms":   s.now().Sub(started).Milliseconds(),
	}).Info("transfer summary completed")
	return summary, nil
}

func (s *Service) logWarnings(entry *logrus.Entry, warnings []domain.BranchWarning) {
	for _, w := range warnings {
		entry.WithFields(logrus.Fields{
			"branch": w.Branch,
			"side":   w.Side,
		}).Warn("branch ledger unavailable: " + w.Message)
	}
}

