package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"kardex/backend/internal/domain"
	"kardex/backend/internal/store"
	"kardex/backend/internal/store/sqlledger"
)

var Dialect = sqlledger.Dialect{
	Name: "postgres",
	QuoteIdent: func(name string) string {
		return pgx.Identifier{name}.Sanitize()
	},
	Placeholder: func(n int) string {
		return fmt.Sprintf("$%d", n)
	},
	AsText: func(column string) string {
		return fmt.Sprintf("CAST(%s AS TEXT)", column)
	},
}

type Store struct {
	db     *sql.DB
	ledger *sqlledger.Reader
}

func New(ctx context.Context, databaseURL string, tables sqlledger.Tables, log *logrus.Logger) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, ledger: sqlledger.NewReader(db, Dialect, tables, log)}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListMovements(ctx context.Context, branchID string, dateRange domain.DateRange, movementType int) ([]domain.Movement, error) {
	return s.ledger.ListMovements(ctx, branchID, dateRange, movementType)
}

func (s *Store) GetReportingPeriod(ctx context.Context) (*domain.ReportingPeriod, error) {
	var period domain.ReportingPeriod
	err := s.db.QueryRowContext(ctx, `
		SELECT period_from, period_to, updated_by, updated_at
		FROM reporting_periods
		WHERE active = true
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&period.From, &period.To, &period.UpdatedBy, &period.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	period.From = period.From.UTC()
	period.To = period.To.UTC()
	period.UpdatedAt = period.UpdatedAt.UTC()
	return &period, nil
}

func (s *Store) SetReportingPeriod(ctx context.Context, period domain.ReportingPeriod) error {
	if !period.Range().Valid() {
		return store.ErrInvalidRange
	}
	if period.UpdatedAt.IsZero() {
		period.UpdatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `UPDATE reporting_periods SET active = false WHERE active = true`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reporting_periods (period_from, period_to, updated_by, updated_at, active)
		VALUES ($1,$2,$3,$4,true)
	`, period.From, period.To, period.UpdatedBy, period.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
