package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/backend/internal/branch"
	"kardex/backend/internal/cache"
	"kardex/backend/internal/domain"
	"kardex/backend/internal/store"
	"kardex/backend/internal/store/memory"
)

func newTestService(t *testing.T, opts Options) (*Service, *memory.Store) {
	t.Helper()
	dir := branch.Default()
	repo := memory.NewSeeded(dir)
	if opts.Logger == nil {
		opts.Logger, _ = test.NewNullLogger()
	}
	return New(repo, repo, dir, cache.NewMemoryReportCache(), opts), repo
}

func analystCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "analyst", Role: "analyst"})
}

func findPair(t *testing.T, report *domain.TransferReport, destination string, item string) domain.TransferPair {
	t.Helper()
	for _, pair := range report.Pairs {
		if pair.Destination == destination && pair.ItemCode == item {
			return pair
		}
	}
	t.Fatalf("pair %s/%s not found", destination, item)
	return domain.TransferPair{}
}

func TestReconcileTransfersOverSeededPeriod(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	report, err := svc.ReconcileTransfers(analystCtx(), " MEXICO ", nil)
	require.NoError(t, err)

	assert.Equal(t, "mexico", report.Origin)
	assert.NotEmpty(t, report.RunID)
	assert.Empty(t, report.Warnings)
	assert.Len(t, report.Pairs, 4)
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, "REPOSICION", report.Unresolved[0].Reference)

	clean := findPair(t, report, "baja", "ABC1")
	assert.True(t, clean.Matched)
	assert.Equal(t, "123", clean.Folio)
	assert.Equal(t, domain.TransferStatusOK, clean.Status())

	short := findPair(t, report, "baja", "PARA500")
	assert.True(t, short.QuantityDiscrepancy)
	assert.True(t, short.ValueDiscrepancy.Equal(decimal.RequireFromString("73.6")))

	withinTolerance := findPair(t, report, "centro", "LORA10")
	assert.False(t, withinTolerance.QuantityDiscrepancy)

	assert.Equal(t, 1, report.DiscrepancyCount)
	for i := 1; i < len(report.Pairs); i++ {
		assert.False(t, report.Pairs[i].Date.After(report.Pairs[i-1].Date))
	}

	archived, err := svc.GetReport(analystCtx(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, archived.RunID)
	assert.Equal(t, "analyst", archived.RequestedBy)
	assert.True(t, archived.Balance.Equal(report.Balance))
}

func TestReconcileTransfersIsolatesBranchFailure(t *testing.T) {
	svc, repo := newTestService(t, Options{})
	repo.FailBranch("baja", errors.New("dial tcp: connection refused"))

	report, err := svc.ReconcileTransfers(analystCtx(), "mexico", nil)
	require.NoError(t, err)

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "baja", report.Warnings[0].Branch)
	assert.Equal(t, domain.LedgerSideIncoming, report.Warnings[0].Side)

	assert.False(t, findPair(t, report, "baja", "ABC1").Matched)
	assert.False(t, findPair(t, report, "baja", "PARA500").Matched)
	assert.True(t, findPair(t, report, "centro", "LORA10").Matched)
	assert.True(t, findPair(t, report, "econofarma", "AMOX875").Matched)
}

func TestReconcileTransfersTimesOutSlowBranch(t *testing.T) {
	svc, repo := newTestService(t, Options{ReadTimeout: 30 * time.Millisecond})
	repo.SetLatency("centro", time.Second)

	report, err := svc.ReconcileTransfers(analystCtx(), "mexico", nil)
	require.NoError(t, err)

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "centro", report.Warnings[0].Branch)
	assert.Contains(t, report.Warnings[0].Message, context.DeadlineExceeded.Error())
	assert.False(t, findPair(t, report, "centro", "LORA10").Matched)
	assert.True(t, findPair(t, report, "baja", "ABC1").Matched)
}

func TestReconcileTransfersWithoutPeriodFails(t *testing.T) {
	svc, repo := newTestService(t, Options{})
	repo.ClearReportingPeriod()

	_, err := svc.ReconcileTransfers(analystCtx(), "mexico", nil)
	assert.ErrorIs(t, err, ErrNoActivePeriod)

	_, err = svc.TransferSummary(analystCtx(), nil)
	assert.ErrorIs(t, err, ErrNoActivePeriod)
}

func TestReconcileTransfersRejectsUnknownOrigin(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	_, err := svc.ReconcileTransfers(analystCtx(), "tijuana", nil)
	assert.ErrorIs(t, err, store.ErrUnknownBranch)

	_, err = svc.ReconcileTransfers(analystCtx(), "unknown", nil)
	assert.ErrorIs(t, err, store.ErrUnknownBranch)
}

func TestNewerRunSupersedesOlderInSameScope(t *testing.T) {
	svc, repo := newTestService(t, Options{})
	repo.SetLatency("baja", 300*time.Millisecond)

	stale := make(chan error, 1)
	go func() {
		_, err := svc.ReconcileTransfers(analystCtx(), "mexico", nil)
		stale <- err
	}()
	time.Sleep(50 * time.Millisecond)

	report, err := svc.ReconcileTransfers(analystCtx(), "centro", nil)
	require.NoError(t, err)
	assert.Equal(t, "centro", report.Origin)

	select {
	case err := <-stale:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded run did not return")
	}
}

func TestRunsOfDifferentUsersDoNotSupersedeEachOther(t *testing.T) {
	svc, repo := newTestService(t, Options{})
	repo.SetLatency("baja", 100*time.Millisecond)

	other := make(chan error, 1)
	go func() {
		ctx := WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
		_, err := svc.ReconcileTransfers(ctx, "mexico", nil)
		other <- err
	}()
	time.Sleep(20 * time.Millisecond)

	_, err := svc.ReconcileTransfers(analystCtx(), "mexico", nil)
	require.NoError(t, err)
	assert.NoError(t, <-other)
}

func TestTransferSummaryCountsChainWide(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	summary, err := svc.TransferSummary(analystCtx(), nil)
	require.NoError(t, err)

	assert.Empty(t, summary.Warnings)
	assert.Equal(t, 1, summary.DiscrepancyCount)
	assert.True(t, summary.Balance.Equal(summary.TotalSent.Sub(summary.TotalReceived)))

	byBranch := map[string]domain.BranchTotals{}
	for _, totals := range summary.ByBranch {
		byBranch[totals.Branch] = totals
	}
	assert.Equal(t, 1, byBranch["mexico"].DiscrepancyCount)
	assert.True(t, byBranch["baja"].Sent.Equal(byBranch["baja"].Received), "baja to mexico transfer is clean")
}

func TestTransferSummaryDegradesFailedBranch(t *testing.T) {
	svc, repo := newTestService(t, Options{})
	repo.FailBranch("econofarma", errors.New("timeout"))

	summary, err := svc.TransferSummary(analystCtx(), nil)
	require.NoError(t, err)
	assert.Len(t, summary.Warnings, 2)
	for _, w := range summary.Warnings {
		assert.Equal(t, "econofarma", w.Branch)
	}
	assert.Equal(t, 2, summary.DiscrepancyCount, "unreceived econofarma transfer now differs")
}

func TestExplicitRangeOverridesPeriod(t *testing.T) {
	svc, repo := newTestService(t, Options{})
	repo.ClearReportingPeriod()

	rng := &domain.DateRange{From: time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2001, 1, 31, 0, 0, 0, 0, time.UTC)}
	report, err := svc.ReconcileTransfers(analystCtx(), "mexico", rng)
	require.NoError(t, err)
	assert.Empty(t, report.Pairs)
	assert.True(t, report.Balance.IsZero())
}

func TestSetReportingPeriodRequiresAdmin(t *testing.T) {
	logger, hook := test.NewNullLogger()
	svc, _ := newTestService(t, Options{Logger: logger, Now: func() time.Time {
		return time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	}})
	req := domain.ReportingPeriodRequest{From: "2026-02-01", To: "2026-02-28"}

	_, err := svc.SetReportingPeriod(analystCtx(), req)
	assert.ErrorIs(t, err, ErrForbidden)

	adminCtx := WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
	period, err := svc.SetReportingPeriod(adminCtx, req)
	require.NoError(t, err)
	assert.Equal(t, "admin", period.UpdatedBy)
	assert.Equal(t, time.Date(2026, 2, 28, 23, 59, 59, 999999999, time.UTC), period.To)

	stored, err := svc.GetReportingPeriod(context.Background())
	require.NoError(t, err)
	assert.True(t, stored.From.Equal(period.From))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)

	_, err = svc.SetReportingPeriod(adminCtx, domain.ReportingPeriodRequest{From: "2026-03-01", To: "2026-02-01"})
	assert.ErrorIs(t, err, store.ErrInvalidRange)
}

func TestParseDateRange(t *testing.T) {
	rng, err := ParseDateRange("", "")
	require.NoError(t, err)
	assert.Nil(t, rng)

	_, err = ParseDateRange("2026-01-01", "")
	assert.ErrorIs(t, err, store.ErrInvalidRange)

	_, err = ParseDateRange("yesterday", "2026-01-02")
	assert.ErrorIs(t, err, store.ErrInvalidRange)

	rng, err = ParseDateRange("2026-01-01T08:00:00Z", "2026-01-01T18:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 18, rng.To.Hour())

	rng, err = ParseDateRange("2026-01-01", "2026-01-01")
	require.NoError(t, err)
	assert.True(t, rng.Contains(time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)))
}

func TestResolveDestinationPreview(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	preview := svc.ResolveDestination("ENVIO A SUC. #2 BAJA")
	assert.True(t, preview.Resolved)
	assert.Equal(t, "baja", preview.Destination)

	preview = svc.ResolveDestination("AJUSTE")
	assert.False(t, preview.Resolved)
	assert.Equal(t, domain.UnknownBranch, preview.Destination)
}

func TestGetReportIsScopedToRequester(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	report, err := svc.ReconcileTransfers(analystCtx(), "mexico", nil)
	require.NoError(t, err)

	other := WithActor(context.Background(), domain.Actor{Username: "auditor", Role: "analyst"})
	_, err = svc.GetReport(other, report.RunID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.GetReport(context.Background(), report.RunID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	admin := WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
	archived, err := svc.GetReport(admin, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, "analyst", archived.RequestedBy)
}

func TestGetReportMissingRun(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	_, err := svc.GetReport(context.Background(), "rec-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
