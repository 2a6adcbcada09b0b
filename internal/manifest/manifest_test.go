package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadPreservesOrderAndIndexes(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{
  "scenario_count": 3,
  "scenarios": [
    {"id": 300, "name": "Order intake", "category": "orders", "is_active": true, "filename": "300.json"},
    {"id": 100, "name": "Invoice sync", "category": "billing", "is_active": false, "filename": "100.json"},
    {"id": 200, "name": "CRM update", "category": "crm", "is_active": true, "filename": "200.json"}
  ]
}`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ids := m.IDs()
	if len(ids) != 3 || ids[0] != 300 || ids[1] != 100 || ids[2] != 200 {
		t.Fatalf("ids = %v, want file order [300 100 200]", ids)
	}
	s, err := m.Lookup(100)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if s.Name != "Invoice sync" || s.Category != "billing" {
		t.Fatalf("unexpected scenario: %+v", s)
	}
	if m.ActiveCount() != 2 {
		t.Fatalf("active count = %d, want 2", m.ActiveCount())
	}
	if got := m.BlueprintPath(s); got != filepath.Join(dir, "100.json") {
		t.Fatalf("blueprint path = %s", got)
	}
}

func TestLookupUnknownID(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"scenarios": []}`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := m.Lookup(999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadMissingManifest(t *testing.T) {
	if _, err := Load(t.TempDir()); !errors.Is(err, ErrManifestMissing) {
		t.Fatalf("expected ErrManifestMissing, got %v", err)
	}
}

func TestScenarioCountDefaultsToLength(t *testing.T) {
	dir := t.TempDir()
	var entries string
	for i := 0; i < 4; i++ {
		if i > 0 {
			entries += ","
		}
		entries += fmt.Sprintf(`{"id": %d, "name": "s%d", "category": "c", "filename": "%d.json"}`, i+1, i+1, i+1)
	}
	writeManifest(t, dir, `{"scenarios": [`+entries+`]}`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.ScenarioCount != 4 {
		t.Fatalf("scenario count = %d, want 4", m.ScenarioCount)
	}
}
