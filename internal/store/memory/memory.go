package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"kardex/backend/internal/domain"
	"kardex/backend/internal/store"
)

// Directory is the subset of branch.Directory the seeded store needs.
type Directory interface {
	IDs() []string
	OutgoingType() int
	IncomingType() int
}

type Store struct {
	mu              sync.RWMutex
	ledgers         map[string][]domain.Movement
	failures        map[string]error
	latency         map[string]time.Duration
	period          *domain.ReportingPeriod
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_ANALYST_PASSWORD;
// when unset, dev defaults are used and a warning is printed.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	analystPwd := envOr("SEED_ANALYST_PASSWORD", "analyst123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_ANALYST_PASSWORD") == "" {
		logrus.Warn("[memory-store] using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_ANALYST_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"analyst", analystPwd, "analyst"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.MinCost)
		if err != nil {
			logrus.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store with one ledger per branch id.
func New(branchIDs []string) *Store {
	ledgers := make(map[string][]domain.Movement, len(branchIDs))
	for _, id := range branchIDs {
		ledgers[id] = nil
	}
	return &Store{
		ledgers:         ledgers,
		failures:        make(map[string]error),
		latency:         make(map[string]time.Duration),
		usersByUsername: seedUsers(),
	}
}

// NewSeeded returns a store with demo transfers for the current month and an
// active reporting period covering it.
func NewSeeded(dir Directory) *Store {
	s := New(dir.IDs())

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	at := func(day int, hour int) time.Time {
		return monthStart.AddDate(0, 0, day-1).Add(time.Duration(hour) * time.Hour)
	}
	out, in := dir.OutgoingType(), dir.IncomingType()
	row := func(day int, folio, item, qty, cost, reference string, movto int) domain.Movement {
		return domain.Movement{
			Date:         at(day, 10),
			Folio:        folio,
			ItemCode:     item,
			Quantity:     decimal.RequireFromString(qty),
			UnitCost:     decimal.RequireFromString(cost),
			Reference:    reference,
			MovementType: movto,
		}
	}

	seed := map[string][]domain.Movement{
		"mexico": {
			row(1, "00123.0", " abc1 ", "10", "5.00", "A SUC. #2 BAJA", out),
			row(1, "00123.0", "PARA500", "24", "18.40", "A SUC. #2 BAJA", out),
			row(2, "130", "AMOX875", "6", "92.15", "A SUCURSAL ECONOFARMA", out),
			row(3, "131", "LORA10", "12", "31.00", "TRASPASO A SUC 4 CENTRO", out),
			row(3, "132", "OMEP20", "4", "55.90", "REPOSICION", out),
			row(4, "88.0", "IBU400", "15", "12.75", "", in),
		},
		"baja": {
			row(1, "123", "ABC1", "10", "5.50", "", in),
			row(2, "123", "para500", "20", "18.40", "", in),
			row(4, "88", "IBU400", "15", "12.75", "A SUCURSAL #1 MEXICO", out),
		},
		"econofarma": {
			row(3, "0130", "AMOX875", "6", "95.00", "", in),
		},
		"centro": {
			row(4, "131", "LORA10", "11.99", "31.00", "", in),
		},
	}
	for id, rows := range seed {
		if _, ok := s.ledgers[id]; !ok {
			continue
		}
		for i := range rows {
			rows[i].Branch = id
		}
		s.ledgers[id] = rows
	}

	s.period = &domain.ReportingPeriod{
		From:      monthStart,
		To:        monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond),
		UpdatedBy: "seed",
		UpdatedAt: now,
	}
	return s
}

func (s *Store) ListMovements(ctx context.Context, branchID string, dateRange domain.DateRange, movementType int) ([]domain.Movement, error) {
	if !dateRange.Valid() {
		return nil, store.ErrInvalidRange
	}

	s.mu.RLock()
	rows, known := s.ledgers[branchID]
	failure := s.failures[branchID]
	delay := s.latency[branchID]
	s.mu.RUnlock()

	if !known {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownBranch, branchID)
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}

	result := make([]domain.Movement, 0, len(rows))
	for _, row := range rows {
		if row.MovementType != movementType || !dateRange.Contains(row.Date) {
			continue
		}
		result = append(result, row)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

// AddMovements appends rows to a branch ledger, registering the branch if needed.
func (s *Store) AddMovements(branchID string, rows ...domain.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		row.Branch = branchID
		s.ledgers[branchID] = append(s.ledgers[branchID], row)
	}
	if _, ok := s.ledgers[branchID]; !ok {
		s.ledgers[branchID] = nil
	}
}

// FailBranch makes every read of the branch ledger return err; nil clears it.
func (s *Store) FailBranch(branchID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, branchID)
		return
	}
	s.failures[branchID] = err
}

// SetLatency delays reads of the branch ledger, honoring context cancellation.
func (s *Store) SetLatency(branchID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency[branchID] = delay
}

func (s *Store) GetReportingPeriod(_ context.Context) (*domain.ReportingPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.period == nil {
		return nil, store.ErrNotFound
	}
	period := *s.period
	return &period, nil
}

func (s *Store) SetReportingPeriod(_ context.Context, period domain.ReportingPeriod) error {
	if !period.Range().Valid() {
		return store.ErrInvalidRange
	}
	if period.UpdatedAt.IsZero() {
		period.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = &period
	return nil
}

// ClearReportingPeriod removes the active period.
func (s *Store) ClearReportingPeriod() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "analyst"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidInput
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
