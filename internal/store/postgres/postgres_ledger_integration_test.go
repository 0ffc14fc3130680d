package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"kardex/backend/internal/domain"
)

type fixedTables map[string]string

func (f fixedTables) Branch(id string) (domain.Branch, bool) {
	table, ok := f[id]
	return domain.Branch{ID: id, Table: table}, ok
}

func TestListMovementsReadsLedgerTable(t *testing.T) {
	databaseURL := os.Getenv("KARDEX_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set KARDEX_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	table := fmt.Sprintf("kardex_it_%d", time.Now().UnixNano())
	s, err := New(ctx, databaseURL, fixedTables{"it": table}, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table)
		_ = s.Close()
	})

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE `+table+` (
			fecha timestamptz NOT NULL,
			fol text,
			referencia text,
			articulo text,
			cantidad text,
			costo text,
			movto integer NOT NULL
		)
	`); err != nil {
		t.Fatalf("create ledger: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO `+table+` (fecha, fol, referencia, articulo, cantidad, costo, movto) VALUES
		('2026-03-02 10:00:00+00', '00123.0', 'A SUC. #2 BAJA', ' abc1 ', '10', '5.00', 12),
		('2026-03-03 10:00:00+00', '124', NULL, 'XYZ', 'diez', '1.5', 12),
		('2026-03-03 11:00:00+00', '125', NULL, 'XYZ', '1', '1', 11),
		('2026-04-01 10:00:00+00', '126', NULL, 'XYZ', '1', '1', 12)
	`); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	rng := domain.DateRange{
		From: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, time.March, 31, 23, 59, 59, 0, time.UTC),
	}
	rows, err := s.ListMovements(ctx, "it", rng, 12)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 outgoing rows in range, got %d", len(rows))
	}
	if rows[0].Folio != "124" || !rows[0].Quantity.IsZero() {
		t.Fatalf("expected malformed quantity to read as zero, got %+v", rows[0])
	}
	if rows[1].Reference != "A SUC. #2 BAJA" || rows[1].Branch != "it" {
		t.Fatalf("unexpected row %+v", rows[1])
	}

	empty, err := s.ListMovements(ctx, "it", rng, 99)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no rows for unused movement type, got %d", len(empty))
	}
}
