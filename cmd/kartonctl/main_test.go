package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "karton.yaml")
	body := "database:\n  driver: sqlite\n  path: " + filepath.Join(dir, "karton.db") +
		"\nstorage:\n  upload_base: " + filepath.Join(dir, "uploads") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestMaintenanceCommands(t *testing.T) {
	cfg := writeConfig(t)
	if err := execute(t, "migrate", "--config", cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := execute(t, "create-operator", "line1", "secret1", "--config", cfg); err != nil {
		t.Fatalf("create-operator: %v", err)
	}
	// existing operator is not an error
	if err := execute(t, "create-operator", "line1", "secret1", "--config", cfg); err != nil {
		t.Fatalf("create-operator again: %v", err)
	}
	if err := execute(t, "create-operator", "line2", "123", "--config", cfg); err == nil {
		t.Fatal("short password accepted")
	}
	if err := execute(t, "report", "--json", "--config", cfg); err != nil {
		t.Fatalf("report: %v", err)
	}
	if err := execute(t, "report", "--date", "14-03-2026", "--config", cfg); err == nil {
		t.Fatal("bad date accepted")
	}
	if err := execute(t, "purge", "--days", "7", "--config", cfg); err != nil {
		t.Fatalf("purge: %v", err)
	}
}

func TestScanUnreadableFile(t *testing.T) {
	cfg := writeConfig(t)
	err := execute(t, "scan", "--config", cfg, filepath.Join(t.TempDir(), "missing.png"))
	if err == nil || !strings.Contains(err.Error(), "no accepted code") {
		t.Fatalf("expected scan failure, got %v", err)
	}
	err = execute(t, "scan", "--config", cfg, "--preset", "ISO", "x.png")
	if err == nil {
		t.Fatal("unknown preset accepted")
	}
}
