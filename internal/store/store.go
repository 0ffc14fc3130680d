package store

import (
	"context"
	"errors"

	"kardex/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidRange  = errors.New("invalid date range")
	ErrUnknownBranch = errors.New("unknown branch")
)

// LedgerReader is the read-only view of the per-branch Kardex tables.
type LedgerReader interface {
	ListMovements(ctx context.Context, branchID string, dateRange domain.DateRange, movementType int) ([]domain.Movement, error)
}

type PeriodStore interface {
	GetReportingPeriod(ctx context.Context) (*domain.ReportingPeriod, error)
	SetReportingPeriod(ctx context.Context, period domain.ReportingPeriod) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type Repository interface {
	LedgerReader
	PeriodStore
	UserStore
}
