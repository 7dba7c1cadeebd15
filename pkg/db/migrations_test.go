package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const migrationsTestPrefix = "db:migrations_test"

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("%s - failed to write %s: %v", migrationsTestPrefix, name, err)
		}
	}
	return dir
}

func TestLoadMigrationFiles_SortedSQLOnly(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"0002_second.sql": "SECOND",
		"0001_first.sql":  "FIRST",
		"README.md":       "# Migrations",
		"notes.txt":       "notes",
		"0004_upper.SQL":  "UPPER",
	})
	if err := os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o755); err != nil {
		t.Fatalf("%s - mkdir: %v", migrationsTestPrefix, err)
	}

	result, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(result) != 3 {
		t.Fatalf("%s - expected 3 migrations, got %d", migrationsTestPrefix, len(result))
	}
	if result[0].Name != "0001_first.sql" || result[0].SQL != "FIRST" {
		t.Errorf("%s - unexpected first migration %+v", migrationsTestPrefix, result[0])
	}
	if result[1].Name != "0002_second.sql" || result[1].SQL != "SECOND" {
		t.Errorf("%s - unexpected second migration %+v", migrationsTestPrefix, result[1])
	}
}

func TestLoadMigrationFiles_EmptyDir(t *testing.T) {
	result, err := LoadMigrationFiles(t.TempDir())
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(result) != 0 {
		t.Errorf("%s - expected empty result, got %d items", migrationsTestPrefix, len(result))
	}
}

func TestLoadMigrationFiles_NonExistentDir(t *testing.T) {
	if _, err := LoadMigrationFiles(filepath.Join(t.TempDir(), "nonexistent")); err == nil {
		t.Errorf("%s - expected error for non-existent directory", migrationsTestPrefix)
	}
}

func TestLoadMigrationFiles_RepositoryMigrations(t *testing.T) {
	result, err := LoadMigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(result) == 0 {
		t.Fatalf("%s - expected at least one migration", migrationsTestPrefix)
	}
	if result[0].Name != "0001_provider_events.sql" {
		t.Errorf("%s - unexpected first migration %s", migrationsTestPrefix, result[0].Name)
	}
	if !strings.Contains(result[0].SQL, "CREATE TABLE IF NOT EXISTS provider_events") {
		t.Errorf("%s - first migration does not create provider_events", migrationsTestPrefix)
	}
}
