package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitAutodocDirCreatesStructure(t *testing.T) {
	dir := t.TempDir()
	if err := InitAutodocDir(dir); err != nil {
		t.Fatalf("InitAutodocDir: %v", err)
	}

	for _, sub := range []string{
		filepath.Join(AutodocDir, "logs"),
		filepath.Join(AutodocDir, "state"),
		filepath.Join(AutodocDir, "tasks"),
		filepath.Join("docs", "scenarios"),
		filepath.Join("docs", "findings"),
	} {
		info, err := os.Stat(filepath.Join(dir, sub))
		if err != nil {
			t.Fatalf("expected %s to exist: %v", sub, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", sub)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, AutodocDir, "config.yaml"))
	if err != nil {
		t.Fatalf("config.yaml not seeded: %v", err)
	}
	if !strings.Contains(string(data), "agent:") {
		t.Fatal("seeded config.yaml missing agent section")
	}
}

func TestInitAutodocDirPreservesExistingConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, AutodocDir), 0o755); err != nil {
		t.Fatal(err)
	}
	custom := "version: 1\nsnapshot: exports/v2\n"
	path := filepath.Join(dir, AutodocDir, "config.yaml")
	if err := os.WriteFile(path, []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := InitAutodocDir(dir); err != nil {
		t.Fatalf("InitAutodocDir: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != custom {
		t.Fatal("existing config.yaml was overwritten")
	}
}

func TestNewConfigDefaultsWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}

	if cfg.Project.Snapshot != defaultSnapshotDir {
		t.Fatalf("snapshot = %q, want %q", cfg.Project.Snapshot, defaultSnapshotDir)
	}
	if cfg.Project.Agent.Command != defaultAgentCommand {
		t.Fatalf("agent command = %q, want %q", cfg.Project.Agent.Command, defaultAgentCommand)
	}
	if cfg.Project.PauseSeconds != defaultPauseSeconds {
		t.Fatalf("pause = %d, want %d", cfg.Project.PauseSeconds, defaultPauseSeconds)
	}
	if got := cfg.SnapshotDir(); got != filepath.Join(dir, defaultSnapshotDir) {
		t.Fatalf("SnapshotDir = %q", got)
	}
}

func TestNewConfigReadsProjectFile(t *testing.T) {
	dir := t.TempDir()
	if err := InitAutodocDir(dir); err != nil {
		t.Fatal(err)
	}
	body := `version: 1
snapshot: exports/2026-08
agent:
  command: opencode
  args: ["run", "--quiet"]
pause_seconds: 12
`
	if err := os.WriteFile(filepath.Join(dir, AutodocDir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Project.Snapshot != "exports/2026-08" {
		t.Fatalf("snapshot = %q", cfg.Project.Snapshot)
	}
	if cfg.Project.Agent.Command != "opencode" {
		t.Fatalf("agent command = %q", cfg.Project.Agent.Command)
	}
	if len(cfg.Project.Agent.Args) != 2 || cfg.Project.Agent.Args[0] != "run" {
		t.Fatalf("agent args = %v", cfg.Project.Agent.Args)
	}
	if cfg.Project.PauseSeconds != 12 {
		t.Fatalf("pause = %d", cfg.Project.PauseSeconds)
	}
	if got := cfg.ManifestPath(); got != filepath.Join(dir, "exports/2026-08", "manifest.json") {
		t.Fatalf("ManifestPath = %q", got)
	}
}

func TestNewConfigRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	if err := InitAutodocDir(dir); err != nil {
		t.Fatal(err)
	}
	body := "version: 1\npause_seconds: -3\n"
	if err := os.WriteFile(filepath.Join(dir, AutodocDir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewConfig(dir); err == nil {
		t.Fatal("expected negative pause_seconds to be rejected")
	}
}

func TestSnapshotEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(SnapshotEnv, "elsewhere/snap")

	cfg, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Project.Snapshot != "elsewhere/snap" {
		t.Fatalf("snapshot = %q, want env override", cfg.Project.Snapshot)
	}
}

func TestSnapshotDirAbsolutePathKeptAsIs(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "snap")
	t.Setenv(SnapshotEnv, abs)

	cfg, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if got := cfg.SnapshotDir(); got != abs {
		t.Fatalf("SnapshotDir = %q, want %q", got, abs)
	}
}

func TestPartialConfigGetsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := InitAutodocDir(dir); err != nil {
		t.Fatal(err)
	}
	body := "snapshot: exports/min\n"
	if err := os.WriteFile(filepath.Join(dir, AutodocDir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("version = %d, want defaulted 1", cfg.Project.Version)
	}
	if cfg.Project.Agent.Command != defaultAgentCommand {
		t.Fatalf("agent command = %q, want default", cfg.Project.Agent.Command)
	}
	if cfg.Project.PauseSeconds != defaultPauseSeconds {
		t.Fatalf("pause = %d, want default", cfg.Project.PauseSeconds)
	}
}
