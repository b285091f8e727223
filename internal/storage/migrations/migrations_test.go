package migrations

import (
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "two statements",
			script: "CREATE TABLE a (x UInt8);\nCREATE TABLE b (y UInt8);\n",
			want:   []string{"CREATE TABLE a (x UInt8)", "CREATE TABLE b (y UInt8)"},
		},
		{
			name:   "comments dropped",
			script: "-- header; with semicolon\nSELECT 1; -- trailing\n",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "semicolon inside string",
			script: "INSERT INTO t VALUES ('a;b');SELECT 2",
			want:   []string{"INSERT INTO t VALUES ('a;b')", "SELECT 2"},
		},
		{
			name:   "escaped quote",
			script: "SELECT 'it''s; fine';",
			want:   []string{"SELECT 'it''s; fine'"},
		},
		{
			name:   "dashes inside string kept",
			script: "SELECT '--not a comment';",
			want:   []string{"SELECT '--not a comment'"},
		},
		{
			name:   "empty",
			script: "  \n-- only a comment\n;;",
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitStatements(tt.script); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitStatements() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadOrdersAndSkipsEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/002_b.sql":  {Data: []byte("SELECT 2;")},
		"pg/001_a.sql":  {Data: []byte("SELECT 1;")},
		"pg/003_c.sql":  {Data: []byte("   \n")},
		"pg/README.txt": {Data: []byte("ignored")},
	}
	files, err := load(fsys, "pg")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.name)
	}
	if want := []string{"001_a.sql", "002_b.sql"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	for _, dir := range []string{"postgres", "clickhouse"} {
		fsys := PostgresFS
		if dir == "clickhouse" {
			fsys = ClickhouseFS
		}
		files, err := load(fsys, dir)
		if err != nil {
			t.Fatalf("load %s: %v", dir, err)
		}
		if len(files) == 0 {
			t.Fatalf("no %s migrations embedded", dir)
		}
		for _, f := range files {
			if len(splitStatements(f.sql)) == 0 {
				t.Errorf("%s/%s has no statements", dir, f.name)
			}
		}
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/insider")
	if err != nil || db != "insider" {
		t.Fatalf("got %q, %v", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for missing database")
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000/x;drop"); err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Errorf("expected invalid name error, got %v", err)
	}
}
