package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"kardex/backend/internal/branch"
	"kardex/backend/internal/cache"
	"kardex/backend/internal/domain"
	"kardex/backend/internal/store"
)

var (
	ErrNoActivePeriod = errors.New("no active reporting period")
	ErrSuperseded     = errors.New("reconciliation superseded by a newer request")
	ErrForbidden      = errors.New("admin role required")
)

const (
	defaultReportTTL   = 30 * time.Minute
	defaultReadTimeout = 15 * time.Second
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	ReportTTL   time.Duration
	ReadTimeout time.Duration
	Logger      *logrus.Logger
	Now         func() time.Time
}

type Service struct {
	ledger      store.LedgerReader
	periods     store.PeriodStore
	dir         *branch.Directory
	reports     cache.ReportCache
	reportTTL   time.Duration
	readTimeout time.Duration
	log         *logrus.Logger
	now         func() time.Time
	scopes      *scopeTracker
}

func New(ledger store.LedgerReader, periods store.PeriodStore, dir *branch.Directory, reports cache.ReportCache, opts Options) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	if opts.ReportTTL <= 0 {
		opts.ReportTTL = defaultReportTTL
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		ledger:      ledger,
		periods:     periods,
		dir:         dir,
		reports:     reports,
		reportTTL:   opts.ReportTTL,
		readTimeout: opts.ReadTimeout,
		log:         opts.Logger,
		now:         opts.Now,
		scopes:      newScopeTracker(),
	}
}

func (s *Service) ListBranches() domain.BranchListResponse {
	return domain.BranchListResponse{Branches: s.dir.Branches()}
}

func (s *Service) ResolveDestination(reference string) domain.DestinationPreview {
	destination := s.dir.ResolveDestination(reference)
	return domain.DestinationPreview{
		Reference:   reference,
		Destination: destination,
		Resolved:    destination != domain.UnknownBranch,
	}
}

func (s *Service) GetReportingPeriod(ctx context.Context) (*domain.ReportingPeriod, error) {
	period, err := s.periods.GetReportingPeriod(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoActivePeriod
		}
		return nil, err
	}
	return period, nil
}

func (s *Service) SetReportingPeriod(ctx context.Context, req domain.ReportingPeriodRequest) (domain.ReportingPeriod, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.ReportingPeriod{}, ErrForbidden
	}

	rng, err := ParseDateRange(req.From, req.To)
	if err != nil {
		return domain.ReportingPeriod{}, err
	}
	if rng == nil {
		return domain.ReportingPeriod{}, store.ErrInvalidRange
	}

	period := domain.ReportingPeriod{
		From:      rng.From,
		To:        rng.To,
		UpdatedBy: actor.Username,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.periods.SetReportingPeriod(ctx, period); err != nil {
		return domain.ReportingPeriod{}, err
	}

	s.log.WithFields(logrus.Fields{
		"actor": actor.Username,
		"from":  period.From.Format(time.RFC3339),
		"to":    period.To.Format(time.RFC3339),
	}).Info("reporting period updated")
	return period, nil
}

// GetReport returns an archived reconciliation report for export.
func (s *Service) GetReport(ctx context.Context, runID string) (*domain.TransferReport, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, store.ErrInvalidInput
	}
	report, ok, err := s.reports.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	// Other analysts' runs look missing; admins can open any run.
	if actor, _ := ActorFromContext(ctx); actor.Role != "admin" && actor.Username != report.RequestedBy {
		return nil, store.ErrNotFound
	}
	return report, nil
}

// ParseDateRange accepts RFC 3339 timestamps or YYYY-MM-DD dates. A date-only
// upper bound covers the whole day. Both values empty yields nil.
func ParseDateRange(from string, to string) (*domain.DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, store.ErrInvalidRange
	}

	start, _, err := parseBound(from)
	if err != nil {
		return nil, err
	}
	end, dateOnly, err := parseBound(to)
	if err != nil {
		return nil, err
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}

	rng := domain.DateRange{From: start, To: end}
	if !rng.Valid() {
		return nil, store.ErrInvalidRange
	}
	return &rng, nil
}

func parseBound(raw string) (time.Time, bool, error) {
	if parsed, err := time.Parse("2006-01-02", raw); err == nil {
		return parsed.UTC(), true, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %q", store.ErrInvalidRange, raw)
	}
	return parsed.UTC(), false, nil
}

func (s *Service) resolveRange(ctx context.Context, explicit *domain.DateRange) (domain.DateRange, error) {
	if explicit != nil {
		if !explicit.Valid() {
			return domain.DateRange{}, store.ErrInvalidRange
		}
		return *explicit, nil
	}
	period, err := s.GetReportingPeriod(ctx)
	if err != nil {
		return domain.DateRange{}, err
	}
	return period.Range(), nil
}
