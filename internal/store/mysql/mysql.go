// Package mysql reads branch Kardex tables kept in a point-of-sale MySQL
// database. It only implements store.LedgerReader.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"kardex/backend/internal/domain"
	"kardex/backend/internal/store/sqlledger"
)

var Dialect = sqlledger.Dialect{
	Name: "mysql",
	QuoteIdent: func(name string) string {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	},
	Placeholder: func(int) string {
		return "?"
	},
	AsText: func(column string) string {
		return fmt.Sprintf("CAST(%s AS CHAR)", column)
	},
}

type Store struct {
	db     *sql.DB
	ledger *sqlledger.Reader
}

// New opens the ledger database. The DSN is forced to parse DATETIME columns
// into time.Time since fecha is scanned directly.
func New(ctx context.Context, dsn string, tables sqlledger.Tables, log *logrus.Logger) (*Store, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}

	connector, err := mysqldriver.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(15 * time.Minute)

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
