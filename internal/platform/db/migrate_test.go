package db

import (
	"testing"
	"testing/fstest"
	"time"
)

func newTestMigrator(t *testing.T, files fstest.MapFS) *Migrator {
	t.Helper()
	m, err := NewMigrator(nil, files, "")
	if err != nil {
		t.Fatalf("NewMigrator() error: %v", err)
	}
	return m
}

func TestNewMigrator_Schema(t *testing.T) {
	m := newTestMigrator(t, fstest.MapFS{})
	if m.Schema() != "public" {
		t.Errorf("expected default schema public, got %s", m.Schema())
	}
	if _, err := NewMigrator(nil, fstest.MapFS{}, "claims; DROP TABLE x"); err == nil {
		t.Error("expected error for invalid schema name")
	}
	if m, err := NewMigrator(nil, fstest.MapFS{}, "claims"); err != nil || m.Schema() != "claims" {
		t.Errorf("expected claims schema, got %v, %v", m, err)
	}
}

func TestLoadMigrations(t *testing.T) {
	m := newTestMigrator(t, fstest.MapFS{
		"010_late.sql":             {Data: []byte("SELECT 10;")},
		"001_claim_submission.sql": {Data: []byte("CREATE TABLE claim_submission (id UUID);")},
		"002_indexes.sql":          {Data: []byte("SELECT 2;")},
	})
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	for i, want := range []int{1, 2, 10} {
		if migrations[i].Version != want {
			t.Errorf("migration[%d]: expected version %d, got %d", i, want, migrations[i].Version)
		}
	}
	if migrations[0].Name != "001_claim_submission.sql" {
		t.Errorf("unexpected name %s", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE claim_submission (id UUID);" {
		t.Errorf("unexpected SQL %q", migrations[0].SQL)
	}
}

func TestLoadMigrations_SkipsInvalidNames(t *testing.T) {
	m := newTestMigrator(t, fstest.MapFS{
		"001_valid.sql":      {Data: []byte("SELECT 1;")},
		"readme.sql":         {Data: []byte("-- no prefix")},
		"notes.txt":          {Data: []byte("not sql")},
		"abc_invalid.sql":    {Data: []byte("-- non-numeric")},
		"002_also_valid.sql": {Data: []byte("SELECT 2;")},
	})
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	m := newTestMigrator(t, fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":   {Data: []byte("SELECT 1;")},
	})
	if _, err := m.LoadMigrations(); err == nil {
		t.Error("expected duplicate version error")
	}
}

func TestStatusOf(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	statuses := statusOf([]Migration{
		{Version: 1, Name: "001_a.sql"},
		{Version: 2, Name: "002_b.sql"},
	}, map[int]time.Time{1: at})

	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !statuses[0].Applied || statuses[0].AppliedAt == nil || !statuses[0].AppliedAt.Equal(at) {
		t.Errorf("expected first migration applied at %v, got %+v", at, statuses[0])
	}
	if statuses[1].Applied || statuses[1].AppliedAt != nil {
		t.Errorf("expected second migration pending, got %+v", statuses[1])
	}
}
