// Package sqlite implements an embedded store backend.
//
// It exists for local runs and end-to-end tests where no ClickHouse server is
// available. Column types map onto SQLite affinities; TEXT affinity plus
// SQLite's own coercion mirrors the "stringified values, store coerces"
// insert contract closely enough for the importer's purposes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"dsimport/internal/schema"
	"dsimport/internal/store"
)

type Store struct {
	db *sql.DB
}

func init() {
	store.Register("sqlite", New)
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) CreateTable(ctx context.Context, table string, cols []schema.Column) error {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = sqlIdent(c.Name) + " " + dialectType(c.Type)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *Store) DropTable(ctx context.Context, table string) error {
	_, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table)
	return err
}

func (s *Store) InsertRows(ctx context.Context, table string, cols []schema.Column, rows [][]string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	// Stay under SQLite's bind-variable limit.
	chunk := 999 / len(cols)
	if chunk < 1 {
		chunk = 1
	}

	var total int64
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		var b strings.Builder
		b.WriteString("INSERT INTO ")
		b.WriteString(table)
		b.WriteString(" VALUES ")

		args := make([]any, 0, len(batch)*len(cols))
		ph := "(" + strings.TrimRight(strings.Repeat("?,", len(cols)), ",") + ")"
		for i, row := range batch {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ph)
			for _, v := range row {
				args = append(args, v)
			}
		}

		if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
			return total, fmt.Errorf("insert into %s: %w", table, err)
		}
		total += int64(len(batch))
	}
	return total, nil
}

// dialectType maps the importer's closed type set onto SQLite affinities.
// DateTime is stored as TEXT; SQLite has no native timestamp type.
func dialectType(t schema.Type) string {
	switch t {
	case schema.Int32:
		return "INTEGER"
	case schema.Float32:
		return "REAL"
	case schema.DateTime:
		return "TEXT"
	default:
		return "TEXT"
	}
}

func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
