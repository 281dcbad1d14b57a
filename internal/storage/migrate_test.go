package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateUpRecordsVersionsOnce(t *testing.T) {
	db := openRawDB(t)
	for i := 0; i < 2; i++ {
		if err := MigrateUp(db); err != nil {
			t.Fatalf("migrate up #%d: %v", i+1, err)
		}
	}
	applied, err := AppliedMigrations(db)
	if err != nil {
		t.Fatalf("applied migrations: %v", err)
	}
	if len(applied) != 1 || applied[0] != "001_init" {
		t.Fatalf("unexpected applied versions: %v", applied)
	}
}

func TestMigrateDownThenUpKeepsSchemaUsable(t *testing.T) {
	db := openRawDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO app_state (key, data, updated_at) VALUES ('x', '{}', '2024-01-12T00:00:00Z')`); err != nil {
		t.Fatalf("seed row: %v", err)
	}
	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if applied, _ := AppliedMigrations(db); len(applied) != 0 {
		t.Fatalf("expected no applied migrations after down, got %v", applied)
	}
	if _, err := db.Exec(`SELECT 1 FROM app_state`); err == nil {
		t.Fatal("expected app_state to be dropped")
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	now := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	if err := repo.SaveStateBlob(t.Context(), StateBlob{Key: StateKey, Data: []byte(`{"points":3}`), UpdatedAt: now}); err != nil {
		t.Fatalf("save after roundtrip: %v", err)
	}
	got, err := repo.LoadStateBlob(t.Context(), StateKey)
	if err != nil {
		t.Fatalf("load after roundtrip: %v", err)
	}
	if string(got.Data) != `{"points":3}` || !got.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected blob after roundtrip: %+v", got)
	}
}

func TestLoadMigrationsPairsScripts(t *testing.T) {
	all, err := loadMigrations()
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	if len(all) == 0 || all[0].up == "" || all[0].down == "" {
		t.Fatalf("expected paired up/down scripts, got %+v", all)
	}
}
