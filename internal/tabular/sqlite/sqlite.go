// Package sqlite implements the tabular RowStore on a local SQLite file.
// Each logical table keeps its rows in sheet_rows with an explicit position
// column, so the row-position semantics match the spreadsheet backends:
// position 1 is the header, deletes shift later rows up.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"finpro/internal/tabular"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ tabular.RowStore = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// Position shifting rewrites rows in place; a single writer keeps the
	// bookkeeping simple.
	db.SetMaxOpenConns(1)

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ensure(ctx context.Context, t tabular.Table) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sheet_rows WHERE tbl = ? AND pos = 1`, t.Name).Scan(&n)
	if err != nil {
		return fmt.Errorf("check header: %w", err)
	}
	if n > 0 {
		return nil
	}
	cells, err := json.Marshal(t.Headers)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sheet_rows (tbl, pos, cells) VALUES (?, 1, ?)`, t.Name, string(cells))
	if err != nil {
		return fmt.Errorf("insert header: %w", err)
	}
	return nil
}

func (s *Store) ReadAll(ctx context.Context, t tabular.Table) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cells FROM sheet_rows WHERE tbl = ? ORDER BY pos`, t.Name)
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, t tabular.Table, row []string) error {
	cells, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sheet_rows (tbl, pos, cells)
		 SELECT ?, COALESCE(MAX(pos), 0) + 1, ? FROM sheet_rows WHERE tbl = ?`,
		t.Name, string(cells), t.Name)
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

func (s *Store) Overwrite(ctx context.Context, t tabular.Table, pos int, row []string) error {
	if pos < 2 {
		return tabular.ErrRowOutOfRange
	}
	cells, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sheet_rows SET cells = ? WHERE tbl = ? AND pos = ?`,
		string(cells), t.Name, pos)
	if err != nil {
		return fmt.Errorf("overwrite row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return tabular.ErrRowOutOfRange
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, t tabular.Table, pos int) error {
	if pos < 2 {
		return tabular.ErrRowOutOfRange
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM sheet_rows WHERE tbl = ? AND pos = ?`, t.Name, pos)
	if err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return tabular.ErrRowOutOfRange
	}

	// Shift later rows up. The two-step sign flip avoids transient primary
	// key collisions while positions move.
	if _, err := tx.ExecContext(ctx,
		`UPDATE sheet_rows SET pos = -(pos - 1) WHERE tbl = ? AND pos > ?`, t.Name, pos); err != nil {
		return fmt.Errorf("shift rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sheet_rows SET pos = -pos WHERE tbl = ? AND pos < 0`, t.Name); err != nil {
		return fmt.Errorf("restore positions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
