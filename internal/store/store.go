// Package store defines the destination-store seam for the importer and the
// factory registry its backends plug into.
//
// The importer drives a store to a state where each table exists with the
// synthesized schema and, for loaded tables, contains the dataset rows. Each
// backend implements the four commands in its own dialect.
package store

import (
	"context"
	"fmt"
	"sync"

	"dsimport/internal/schema"
)

// Config is the minimal configuration needed to open a store.
type Config struct {
	Kind string
	DSN  string
}

// Store is the command surface the importer needs. Implementations hold one
// shared connection (or pool) reused sequentially across datasets; the
// importer issues one command at a time.
type Store interface {
	// Close releases the underlying connection. Call once at shutdown.
	Close()

	// TableExists probes the live store; results are never cached.
	TableExists(ctx context.Context, table string) (bool, error)

	// CreateTable creates the table with the given column layout. The caller
	// checks existence first; creating an existing table is an error.
	CreateTable(ctx context.Context, table string, cols []schema.Column) error

	// DropTable drops the table if it exists. Dropping an absent table is not
	// an error.
	DropTable(ctx context.Context, table string) error

	// InsertRows bulk-inserts stringified rows, relying on the store to
	// coerce each value to the declared column type. Returns the number of
	// rows handed to the store.
	InsertRows(ctx context.Context, table string, cols []schema.Column, rows [][]string) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "clickhouse", "sqlite").
//
// Call Register from an init() function in a backend package. Registering the
// same kind twice panics; failing fast beats ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("store: Register called with empty kind")
	}
	if f == nil {
		panic("store: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("store: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Store using the registered backend factory for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("store: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported store.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
