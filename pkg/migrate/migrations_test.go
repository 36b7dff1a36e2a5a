package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/tradeflow-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestBundledMigrationsMatchSourceDir(t *testing.T) {
	bundled, err := fs.Glob(migrate.Migrations(), "*.sql")
	if err != nil {
		t.Fatalf("glob bundled: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob dir: %v", err)
	}
	if len(bundled) == 0 || len(bundled) != len(onDisk) {
		t.Fatalf("bundled %d migrations, dir has %d", len(bundled), len(onDisk))
	}
	if err := migrate.ValidateFS(migrate.Migrations()); err != nil {
		t.Fatalf("validate bundled: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestPaymentsMigrationGuardsReferences(t *testing.T) {
	content := readMigration(t, "*_create_payments.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS payment_attempts",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_attempts_reference ON payment_attempts (reference)",
		"CHECK (state IN ('pending', 'success', 'failed', 'cancelled'))",
		"CREATE TABLE IF NOT EXISTS payment_ledger_events",
		"CREATE TABLE IF NOT EXISTS webhook_logs",
		"DROP TABLE IF EXISTS payment_attempts",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInventoryMigrationGuardsDoubleApplication(t *testing.T) {
	content := readMigration(t, "*_create_inventory.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS warehouse_products",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_movements_line_reason ON inventory_movements (line_item_id, reason)",
		"CHECK (quantity_after = quantity_before + delta)",
		"DROP TABLE IF EXISTS inventory_movements",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestFulfillmentMigrationOneOrderPerPayment(t *testing.T) {
	content := readMigration(t, "*_create_fulfillment.sql")

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_fulfillment_orders_payment_attempt_id",
		"CREATE TABLE IF NOT EXISTS order_status_history",
		"CREATE TABLE IF NOT EXISTS issue_reports",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrderHistoryMigrationNumbersRowsPerOrder(t *testing.T) {
	content := readMigration(t, "*_order_history_seq.sql")
	for _, sub := range []string{
		"ADD COLUMN IF NOT EXISTS seq integer NOT NULL",
		"row_number() OVER (PARTITION BY order_id ORDER BY created_at, id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_order_status_history_order_seq ON order_status_history (order_id, seq)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
