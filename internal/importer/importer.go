// Package importer drives the per-dataset provision-and-load protocol
// against a destination store.
//
// For each discovered dataset, in discovery order:
//
//  1. read the file into a Dataset (reader overrides first, then format)
//  2. on full refresh, drop the destination table unconditionally
//  3. probe live table existence; create from the inferred schema only when
//     absent — an existing table's schema is trusted and never compared
//     against the freshly inferred one
//  4. unless the table is excluded, stringify every scalar and bulk-insert
//
// Any failure is fatal to that dataset only: it is logged, counted, and the
// batch moves on. Only a missing dataset root aborts the run.
package importer

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"dsimport/internal/config"
	"dsimport/internal/dataset"
	"dsimport/internal/metrics"
	"dsimport/internal/store"
)

// Logger is the minimal logging interface used by the importer.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type Importer struct {
	store  store.Store
	logger Logger

	root        string
	fullRefresh bool
	exclude     map[string]struct{}
	readers     map[string]dataset.Mode
}

// New builds an importer from the run configuration. The exclusion set and
// reader override table are copied into fresh values owned by this instance.
func New(st store.Store, cfg config.Config, logger Logger) *Importer {
	exclude := make(map[string]struct{}, len(cfg.Exclude))
	for _, name := range cfg.Exclude {
		exclude[name] = struct{}{}
	}

	readers := make(map[string]dataset.Mode, len(cfg.Readers))
	for name, mode := range cfg.Readers {
		if mode == config.ReaderModeKeyValue {
			readers[name] = dataset.ModeKeyValue
		}
	}

	return &Importer{
		store:       st,
		logger:      logger,
		root:        cfg.DatasetRoot,
		fullRefresh: cfg.FullRefresh,
		exclude:     exclude,
		readers:     readers,
	}
}

// Result summarizes one run. Failed counts datasets that errored at any
// step; the run itself still completes.
type Result struct {
	Datasets int
	Loaded   int
	Excluded int
	Failed   int
}

// Run processes every dataset under the configured root. It returns an error
// only when discovery fails; per-dataset failures are reflected in Result.
func (imp *Importer) Run(ctx context.Context) (Result, error) {
	candidates, err := Discover(imp.root)
	if err != nil {
		return Result{}, err
	}

	res := Result{Datasets: len(candidates)}
	for _, c := range candidates {
		if err := imp.processDataset(ctx, c, &res); err != nil {
			res.Failed++
			imp.logf("dataset=%s error: %v", c.Name, err)
			metrics.IncCounter("import_datasets_total", 1, metrics.Labels{"status": "error"})
			continue
		}
		metrics.IncCounter("import_datasets_total", 1, metrics.Labels{"status": "ok"})
	}

	imp.logf("run complete datasets=%d loaded=%d excluded=%d failed=%d",
		res.Datasets, res.Loaded, res.Excluded, res.Failed)
	return res, nil
}

func (imp *Importer) processDataset(ctx context.Context, c Candidate, res *Result) error {
	readStart := time.Now()
	ds, err := dataset.Read(ctx, c.Name, c.Path, c.Format, imp.readers[c.Name])
	if err != nil {
		return err
	}
	observeStep("read", readStart)
	imp.logf("dataset=%s read rows=%d cols=%d", ds.Name, len(ds.Rows), len(ds.Columns))

	if imp.fullRefresh {
		dropStart := time.Now()
		if err := imp.store.DropTable(ctx, ds.Name); err != nil {
			return fmt.Errorf("drop table %s: %w", ds.Name, err)
		}
		observeStep("drop", dropStart)
		imp.logf("dataset=%s dropped table", ds.Name)
	}

	exists, err := imp.store.TableExists(ctx, ds.Name)
	if err != nil {
		return fmt.Errorf("check table %s: %w", ds.Name, err)
	}
	if !exists {
		createStart := time.Now()
		if err := imp.store.CreateTable(ctx, ds.Name, ds.Columns); err != nil {
			return fmt.Errorf("create table %s: %w", ds.Name, err)
		}
		observeStep("create", createStart)
		imp.logf("dataset=%s created table", ds.Name)
	} else {
		// The live table's schema is trusted as-is; no reconciliation against
		// the freshly inferred schema happens here.
		imp.logf("dataset=%s table exists, keeping current schema", ds.Name)
	}

	if _, excluded := imp.exclude[ds.Name]; excluded {
		res.Excluded++
		imp.logf("dataset=%s load skipped (excluded)", ds.Name)
		return nil
	}

	insertStart := time.Now()
	n, err := imp.store.InsertRows(ctx, ds.Name, ds.Columns, StringifyRows(ds))
	if err != nil {
		return fmt.Errorf("insert into %s: %w", ds.Name, err)
	}
	observeStep("insert", insertStart)

	res.Loaded++
	metrics.IncCounter("import_rows_total", float64(n), metrics.Labels{"table": ds.Name})
	imp.logf("dataset=%s inserted rows=%d", ds.Name, n)
	return nil
}

func (imp *Importer) logf(format string, v ...any) {
	if imp.logger == nil {
		return
	}
	imp.logger.Printf(format, v...)
}

func observeStep(step string, start time.Time) {
	metrics.ObserveHistogram("import_step_duration_seconds", time.Since(start).Seconds(), metrics.Labels{"step": step})
}

// StringifyRows renders every scalar of a dataset as the string handed to the
// store, which coerces it back to the declared column type on insert.
func StringifyRows(ds *dataset.Dataset) [][]string {
	rows := make([][]string, len(ds.Rows))
	for i, row := range ds.Rows {
		out := make([]string, len(row))
		for j, v := range row {
			out[j] = stringifyValue(v)
		}
		rows[i] = out
	}
	return rows
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

// DiscardLogger is a Logger that drops everything, for callers that want a
// silent run without nil checks of their own.
var DiscardLogger Logger = log.New(discardWriter{}, "", 0)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
