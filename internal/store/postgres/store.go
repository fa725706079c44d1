// Package postgres implements a network SQL store backend over pgx.
//
// Inserted values are rendered as untyped quoted literals so Postgres
// resolves them against the declared column types, keeping the same
// "stringified values, store coerces" contract as the other backends.
// Typed text parameters would not coerce into integer columns.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dsimport/internal/schema"
	"dsimport/internal/store"
)

type Store struct {
	db *sql.DB
}

func init() {
	store.Register("postgres", New)
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
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
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, table,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
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
	if _, err := s.db.ExecContext(ctx, buildInsertSQL(table, rows)); err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return int64(len(rows)), nil
}

func buildInsertSQL(table string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" VALUES ")

	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('\'')
			b.WriteString(strings.ReplaceAll(v, "'", "''"))
			b.WriteByte('\'')
		}
		b.WriteByte(')')
	}
	return b.String()
}

func dialectType(t schema.Type) string {
	switch t {
	case schema.Int32:
		return "integer"
	case schema.Float32:
		return "real"
	case schema.DateTime:
		return "timestamp"
	default:
		return "text"
	}
}

func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
