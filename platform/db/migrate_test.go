package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsCreateBothTables(t *testing.T) {
	fsys, err := Migrations()
	if err != nil {
		t.Fatalf("open migrations: %v", err)
	}

	names, err := fs.Glob(fsys, "*.sql")
	if err != nil || len(names) == 0 {
		t.Fatalf("expected embedded migrations, got %v (err %v)", names, err)
	}

	var all strings.Builder
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(data), "-- +goose Up") {
			t.Fatalf("%s is missing the goose Up annotation", name)
		}
		all.Write(data)
	}

	for _, table := range []string{"create table if not exists goods", "create table if not exists calculations"} {
		if !strings.Contains(all.String(), table) {
			t.Fatalf("expected migrations to contain %q", table)
		}
	}
}
