package clickhouse

import (
	"testing"
)

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	got := buildInsertSQL("accounts", [][]string{
		{"1", "10.5", "alice"},
		{"2", "20", "bob"},
	})
	want := "INSERT INTO accounts VALUES ('1', '10.5', 'alice'), ('2', '20', 'bob')"
	if got != want {
		t.Fatalf("buildInsertSQL = %q, want %q", got, want)
	}
}

func TestBuildInsertSQL_EscapesQuotesAndBackslashes(t *testing.T) {
	t.Parallel()

	got := buildInsertSQL("t", [][]string{{`o'hara`, `a\b`}})
	want := `INSERT INTO t VALUES ('o\'hara', 'a\\b')`
	if got != want {
		t.Fatalf("buildInsertSQL = %q, want %q", got, want)
	}
}

func TestEscapeString(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"it's", `it\'s`},
		{`back\slash`, `back\\slash`},
		{`both\'`, `both\\\'`},
	}
	for _, tt := range tests {
		if got := escapeString(tt.in); got != tt.want {
			t.Fatalf("escapeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
