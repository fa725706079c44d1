package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dsimport/internal/config"
	"dsimport/internal/schema"
	"dsimport/internal/store"
)

// fakeStore records every command the importer issues and simulates table
// existence in memory.
type fakeStore struct {
	tables map[string][][]string // table -> inserted rows
	calls  []string

	failCreate map[string]error
	failInsert map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables:     map[string][][]string{},
		failCreate: map[string]error{},
		failInsert: map[string]error{},
	}
}

func (f *fakeStore) Close() {}

func (f *fakeStore) TableExists(ctx context.Context, table string) (bool, error) {
	f.calls = append(f.calls, "exists:"+table)
	_, ok := f.tables[table]
	return ok, nil
}

func (f *fakeStore) CreateTable(ctx context.Context, table string, cols []schema.Column) error {
	f.calls = append(f.calls, "create:"+table)
	if err := f.failCreate[table]; err != nil {
		return err
	}
	if _, ok := f.tables[table]; ok {
		return fmt.Errorf("table %s already exists", table)
	}
	f.tables[table] = nil
	return nil
}

func (f *fakeStore) DropTable(ctx context.Context, table string) error {
	f.calls = append(f.calls, "drop:"+table)
	delete(f.tables, table)
	return nil
}

func (f *fakeStore) InsertRows(ctx context.Context, table string, cols []schema.Column, rows [][]string) (int64, error) {
	f.calls = append(f.calls, fmt.Sprintf("insert:%s:%d", table, len(rows)))
	if err := f.failInsert[table]; err != nil {
		return 0, err
	}
	f.tables[table] = append(f.tables[table], rows...)
	return int64(len(rows)), nil
}

var _ store.Store = (*fakeStore)(nil)

func writeDataFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func testConfig(root string) config.Config {
	cfg := config.Default()
	cfg.DatasetRoot = root
	cfg.Exclude = nil
	return cfg
}

func TestRun_CreatesAndLoads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDataFile(t, dir, "accounts.csv", "id,balance\n1,10.5\n2,20.25\n3,30\n")

	st := newFakeStore()
	imp := New(st, testConfig(dir), DiscardLogger)

	res, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Datasets != 1 || res.Loaded != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(st.tables["accounts"]) != 3 {
		t.Fatalf("accounts holds %d rows, want 3", len(st.tables["accounts"]))
	}
	// Stringified values go over the wire.
	if st.tables["accounts"][0][0] != "1" || st.tables["accounts"][0][1] != "10.5" {
		t.Fatalf("row 0 = %v", st.tables["accounts"][0])
	}
}

func TestRun_ExistingTableIsTrusted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDataFile(t, dir, "accounts.csv", "id,balance\n1,10.5\n")

	st := newFakeStore()
	// Pre-existing table with a schema that differs from whatever the file
	// infers. Without full refresh no create may be issued.
	st.tables["accounts"] = nil

	imp := New(st, testConfig(dir), DiscardLogger)
	if _, err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, call := range st.calls {
		if call == "create:accounts" {
			t.Fatalf("create issued for an existing table; calls: %v", st.calls)
		}
	}
	if len(st.tables["accounts"]) != 1 {
		t.Fatalf("rows still inserted into existing table, got %d", len(st.tables["accounts"]))
	}
}

func TestRun_FullRefreshDropsFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDataFile(t, dir, "accounts.csv", "id\n1\n")

	st := newFakeStore()
	cfg := testConfig(dir)
	cfg.FullRefresh = true
	imp := New(st, cfg, DiscardLogger)

	if _, err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"drop:accounts", "exists:accounts", "create:accounts", "insert:accounts:1"}
	if len(st.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", st.calls, want)
	}
	for i := range want {
		if st.calls[i] != want[i] {
			t.Fatalf("call %d = %q, want %q (all: %v)", i, st.calls[i], want[i], st.calls)
		}
	}
}

func TestRun_FullRefreshDropIsUnconditional(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDataFile(t, dir, "fresh.csv", "id\n1\n")

	st := newFakeStore() // table does not exist; drop must still be issued
	cfg := testConfig(dir)
	cfg.FullRefresh = true
	imp := New(st, cfg, DiscardLogger)

	if _, err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.calls[0] != "drop:fresh" {
		t.Fatalf("first call = %q, want drop:fresh", st.calls[0])
	}
}

func TestRun_ExcludedTableGetsNoRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDataFile(t, dir, "labels.json", `[{"id": 1, "label": "fraud"}]`)

	st := newFakeStore()
	cfg := testConfig(dir)
	cfg.Exclude = []string{"labels"}
	imp := New(st, cfg, DiscardLogger)

	res, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Excluded != 1 || res.Loaded != 0 {
		t.Fatalf("result = %+v", res)
	}

	rows, ok := st.tables["labels"]
	if !ok {
		t.Fatalf("excluded table must still be created")
	}
	if len(rows) != 0 {
		t.Fatalf("excluded table holds %d rows, want 0", len(rows))
	}
}

func TestRun_BadFileDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// Lexical walk order: broken.json comes before good.csv.
	writeDataFile(t, dir, "broken.json", `{"a": `)
	writeDataFile(t, dir, "good.csv", "id\n1\n2\n")

	st := newFakeStore()
	imp := New(st, testConfig(dir), DiscardLogger)

	res, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run must not fail for per-dataset errors: %v", err)
	}
	if res.Failed != 1 || res.Loaded != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(st.tables["good"]) != 2 {
		t.Fatalf("good holds %d rows, want 2", len(st.tables["good"]))
	}
	if _, ok := st.tables["broken"]; ok {
		t.Fatalf("broken dataset must not reach the store")
	}
}

func TestRun_UnrecognizedExtensionFailsThatDatasetOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDataFile(t, dir, "notes.txt", "whatever")
	writeDataFile(t, dir, "ok.csv", "id\n7\n")

	st := newFakeStore()
	imp := New(st, testConfig(dir), DiscardLogger)

	res, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Failed != 1 || res.Loaded != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestRun_StoreFailureAbortsOnlyThatDataset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDataFile(t, dir, "a.csv", "id\n1\n")
	writeDataFile(t, dir, "b.csv", "id\n2\n")

	st := newFakeStore()
	st.failCreate["a"] = errors.New("store offline")
	imp := New(st, testConfig(dir), DiscardLogger)

	res, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Failed != 1 || res.Loaded != 1 {
		t.Fatalf("result = %+v", res)
	}
	// The failed create must abort a's load.
	for _, call := range st.calls {
		if call == "insert:a:1" {
			t.Fatalf("insert issued after failed create; calls: %v", st.calls)
		}
	}
}

func TestRun_KeyValueOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDataFile(t, dir, "mcc_codes.json", `{"5411": "Grocery", "5812": "Restaurant"}`)

	st := newFakeStore()
	cfg := testConfig(dir)
	cfg.Readers = map[string]string{"mcc_codes": config.ReaderModeKeyValue}
	imp := New(st, cfg, DiscardLogger)

	if _, err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows := st.tables["mcc_codes"]
	if len(rows) != 2 {
		t.Fatalf("mcc_codes holds %d rows, want 2", len(rows))
	}
	if rows[0][0] != "5411" || rows[0][1] != "Grocery" || rows[1][0] != "5812" {
		t.Fatalf("key order not preserved: %v", rows)
	}
}

func TestRun_MissingRootIsFatal(t *testing.T) {
	t.Parallel()

	cfg := testConfig(filepath.Join(t.TempDir(), "nope"))
	imp := New(newFakeStore(), cfg, DiscardLogger)

	_, err := imp.Run(context.Background())
	var dnf *DirectoryNotFoundError
	if !errors.As(err, &dnf) {
		t.Fatalf("error is %T, want *DirectoryNotFoundError", err)
	}
}

func TestStringifyValue(t *testing.T) {
	t.Parallel()

	ts := time.Date(2023, 1, 2, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"plain", "plain"},
		{int32(42), "42"},
		{float32(10.5), "10.5"},
		{float32(20), "20"},
		{ts, "2023-01-02 10:30:00"},
		{true, "true"},
		{false, "false"},
	}
	for _, tt := range tests {
		if got := stringifyValue(tt.in); got != tt.want {
			t.Fatalf("stringifyValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
