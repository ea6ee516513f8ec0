package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pabloeorellana/orpos-backend/pkg/migrate"
)

func TestShiftsMigrationEnforcesSingleton(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_shifts_table.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no shifts migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS shifts",
		"idx_shifts_open_singleton",
		"WHERE status = 'open'",
		"DROP TABLE IF EXISTS shifts",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestTransactionTablesDropChildrenFirst(t *testing.T) {
	for _, tc := range []struct {
		glob   string
		parent string
		child  string
	}{
		{"*_create_sales_tables.sql", "sales", "sale_items"},
		{"*_create_returns_tables.sql", "returns", "return_items"},
	} {
		matches, err := filepath.Glob(filepath.Join("migrations", tc.glob))
		if err != nil {
			t.Fatalf("glob migrations: %v", err)
		}
		if len(matches) == 0 {
			t.Fatalf("no migration matching %s", tc.glob)
		}

		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		content := string(data)

		childDrop := strings.Index(content, "DROP TABLE IF EXISTS "+tc.child)
		parentDrop := strings.Index(content, "DROP TABLE IF EXISTS "+tc.parent)
		if childDrop < 0 || parentDrop < 0 {
			t.Fatalf("%s: missing drop statements", tc.glob)
		}
		if childDrop > parentDrop {
			t.Errorf("%s: %s must drop before %s", tc.glob, tc.child, tc.parent)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
