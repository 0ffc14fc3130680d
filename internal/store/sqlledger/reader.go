// Package sqlledger reads Kardex movement tables through database/sql. The
// postgres and mysql stores share it and differ only in their Dialect.
package sqlledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"kardex/backend/internal/domain"
	"kardex/backend/internal/reconcile"
	"kardex/backend/internal/store"
)

type Dialect struct {
	Name        string
	QuoteIdent  func(name string) string
	Placeholder func(n int) string
	AsText      func(column string) string
}

// Tables resolves a branch id to its ledger table.
type Tables interface {
	Branch(id string) (domain.Branch, bool)
}

type Reader struct {
	db      *sql.DB
	dialect Dialect
	tables  Tables
	log     *logrus.Logger
}

func NewReader(db *sql.DB, dialect Dialect, tables Tables, log *logrus.Logger) *Reader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reader{db: db, dialect: dialect, tables: tables, log: log}
}

func (r *Reader) query(table string) string {
	d := r.dialect
	return fmt.Sprintf(`
		SELECT fecha, %s, %s, %s, %s, %s, movto
		FROM %s
		WHERE fecha >= %s AND fecha <= %s AND movto = %s
		ORDER BY fecha DESC
	`,
		d.AsText("fol"), d.AsText("referencia"), d.AsText("articulo"), d.AsText("cantidad"), d.AsText("costo"),
		d.QuoteIdent(table),
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3),
	)
}

func (r *Reader) ListMovements(ctx context.Context, branchID string, dateRange domain.DateRange, movementType int) ([]domain.Movement, error) {
	if !dateRange.Valid() {
		return nil, store.ErrInvalidRange
	}
	b, ok := r.tables.Branch(branchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownBranch, branchID)
	}

	rows, err := r.db.QueryContext(ctx, r.query(b.Table), dateRange.From, dateRange.To, movementType)
	if err != nil {
		return nil, fmt.Errorf("%s ledger %s: %w", r.dialect.Name, b.Table, err)
	}
	defer rows.Close()

	movements := make([]domain.Movement, 0, 64)
	for rows.Next() {
		var (
			date                                    time.Time
			folio, reference, item, qtyRaw, costRaw sql.NullString
			movto                                   int
		)
		if err := rows.Scan(&date, &folio, &reference, &item, &qtyRaw, &costRaw, &movto); err != nil {
			return nil, fmt.Errorf("%s ledger %s: %w", r.dialect.Name, b.Table, err)
		}

		movements = append(movements, domain.Movement{
			Branch:       branchID,
			Date:         date,
			Folio:        folio.String,
			ItemCode:     item.String,
			Quantity:     r.amount(branchID, folio.String, "cantidad", qtyRaw.String),
			UnitCost:     r.amount(branchID, folio.String, "costo", costRaw.String),
			Reference:    reference.String,
			MovementType: movto,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s ledger %s: %w", r.dialect.Name, b.Table, err)
	}

	return movements, nil
}

func (r *Reader) amount(branchID string, folio string, column string, raw string) decimal.Decimal {
	value, ok := reconcile.ParseAmount(raw)
	if !ok {
		r.log.WithFields(logrus.Fields{
			"branch": branchID,
			"folio":  folio,
			"column": column,
			"raw":    raw,
		}).Debug("malformed numeric field read as zero")
	}
	return value
}
