package cmd

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func useSQLite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("GORM_LOG", "off")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("AUDIT_KAFKA_BROKERS", "")
	return dir
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCLI_MigrateUsersTokens(t *testing.T) {
	useSQLite(t)
	if out := run(t, "migrate"); !strings.Contains(out, "SQLite schema up to date") {
		t.Errorf("migrate output = %q", out)
	}
	out := run(t, "users:create", "--username", "ana", "--role", "clerk", "--perm", "inventory.read,inventory.write")
	if !strings.Contains(out, "User ana created") {
		t.Errorf("users:create output = %q", out)
	}
	token := strings.TrimSpace(run(t, "tokens:create", "--username", "ana", "--ttl", "1h"))
	if len(token) != 64 {
		t.Errorf("token = %q, want 64 chars", token)
	}
	if out := run(t, "tokens:revoke", "--token", token); !strings.Contains(out, "revoked") {
		t.Errorf("tokens:revoke output = %q", out)
	}
}

func TestCLI_SweepAndReports(t *testing.T) {
	dir := useSQLite(t)
	run(t, "migrate")
	if out := run(t, "reservations:sweep"); !strings.Contains(out, "Expired reservations: 0") {
		t.Errorf("sweep output = %q", out)
	}
	if out := run(t, "reports:seed"); !strings.Contains(out, "Report definitions created:") {
		t.Errorf("seed output = %q", out)
	}
	path := filepath.Join(dir, "inventory.csv")
	out := run(t, "report:run", "--kind", "inventory", "--csv", path)
	if !strings.Contains(out, "Report inventory: 0 rows") {
		t.Errorf("report:run output = %q", out)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("csv records = %d, want header only", len(records))
	}
}

func TestCLI_CronRunsSingleJob(t *testing.T) {
	useSQLite(t)
	run(t, "migrate")
	out := run(t, "cron:start", "--job", "reservations.sweep")
	if !strings.Contains(out, "Running cron job: reservations.sweep") {
		t.Errorf("cron output = %q", out)
	}
	jobName = ""
}

func TestCLI_StockImportReportsWarnings(t *testing.T) {
	dir := useSQLite(t)
	run(t, "migrate")
	path := filepath.Join(dir, "stock.csv")
	if err := os.WriteFile(path, []byte("sku,qty\nGHOST,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := run(t, "stock:import", "--file", path, "--mode", "add")
	for _, want := range []string{"sku=GHOST: product not found", "CSV rows:    1", "Skipped:     1"} {
		if !strings.Contains(out, want) {
			t.Errorf("stock:import output missing %q:\n%s", want, out)
		}
	}
}
