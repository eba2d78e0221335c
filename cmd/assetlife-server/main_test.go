package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/assetlife/server/internal/config"
)

func run(t *testing.T, args ...string) (*app, string, error) {
	t.Helper()
	a := &app{cfg: config.Default()}
	root := buildRoot(a)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return a, out.String(), err
}

// ── rules check ──

func TestRulesCheckBuiltIn(t *testing.T) {
	_, out, err := run(t, "rules", "check", "--log-level", "error")
	if err != nil {
		t.Fatalf("rules check: %v\n%s", err, out)
	}

	found := false
	for _, line := range strings.Split(out, "\n") {
		f := strings.Fields(line)
		if len(f) == 3 && f[0] == "PROCUREMENT" && f[1] == "COMMISSIONED" && f[2] == "location_required" {
			found = true
		}
		if len(f) >= 1 && f[0] == "DISPOSAL" {
			t.Errorf("terminal stage listed as a source: %q", line)
		}
	}
	if !found {
		t.Errorf("PROCUREMENT -> COMMISSIONED edge missing:\n%s", out)
	}
	if !strings.Contains(out, " edges") {
		t.Errorf("edge count missing:\n%s", out)
	}
	if !strings.Contains(out, "known guards: ") || !strings.Contains(out, "no_active_allocation") {
		t.Errorf("guard list missing:\n%s", out)
	}
}

func TestRulesCheckFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("rules:\n  - from: PROCUREMENT\n    to: COMMISSIONED\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, out, err := run(t, "rules", "check", good, "--log-level", "error")
	if err != nil {
		t.Fatalf("valid file rejected: %v", err)
	}
	if !strings.Contains(out, "1 edges") {
		t.Errorf("unexpected output:\n%s", out)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("rules:\n  - from: DISPOSAL\n    to: IN_OPERATION\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := run(t, "rules", "check", bad, "--log-level", "error"); err == nil {
		t.Fatal("rules naming DISPOSAL as a source were accepted")
	}

	typo := filepath.Join(dir, "typo.yaml")
	if err := os.WriteFile(typo, []byte("rules:\n  - from: AUDIT\n    to: IN_OPERATION\n    guards: [no_open_tickets]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err = run(t, "rules", "check", typo, "--log-level", "error")
	if err == nil || !strings.Contains(err.Error(), "no_open_maintenance") {
		t.Fatalf("unknown guard error should list known guards, got %v", err)
	}
}

// ── configuration precedence ──

func TestFlagsBeatEnvBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assetlife.toml")
	body := "http_addr = \":7001\"\nlog_level = \"warn\"\ndb_driver = \"memory\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ASSETLIFE_HTTP_ADDR", ":7002")
	t.Setenv("ASSETLIFE_LOG_LEVEL", "debug")

	a, out, err := run(t, "rules", "check", "--config", path, "--log-level", "error")
	if err != nil {
		t.Fatalf("rules check: %v\n%s", err, out)
	}
	if a.cfg.HTTPAddr != ":7002" {
		t.Errorf("HTTPAddr = %q, env should override file", a.cfg.HTTPAddr)
	}
	if a.cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, flag should override env", a.cfg.LogLevel)
	}
	if a.cfg.DBDriver != config.DriverMemory {
		t.Errorf("DBDriver = %q, file value lost", a.cfg.DBDriver)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	if _, _, err := run(t, "rules", "check", "--db-driver", "mysql"); err == nil {
		t.Fatal("expected validation error")
	}
	if _, _, err := run(t, "rules", "check", "--config", filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected missing config error")
	}
}

func TestMigrateRejectsMemory(t *testing.T) {
	if _, _, err := run(t, "migrate", "--db-driver", "memory", "--log-level", "error"); err == nil {
		t.Fatal("migrate with the memory driver should fail")
	}
}

func TestMigrateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "assetlife.db")
	if _, out, err := run(t, "migrate", "--db-path", path, "--log-level", "error"); err != nil {
		t.Fatalf("migrate: %v\n%s", err, out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
	// Second run is a no-op.
	if _, _, err := run(t, "migrate", "--db-path", path, "--log-level", "error"); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
