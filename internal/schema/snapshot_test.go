package schema

import (
	"path/filepath"
	"testing"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Tables: []Table{
			{Schema: "public", Name: "orders", Columns: []Column{{Name: "id", Type: "bigint"}}},
			{Schema: "public", Name: "customers", Columns: []Column{{Name: "id", Type: "uuid"}}},
			{Schema: "public", Name: "invoices"},
		},
		Enums:     []Enum{{Name: "order_status", Values: []string{"open", "paid"}}},
		Functions: []Function{},
	}
}

func TestLoadMissingSnapshotIsNil(t *testing.T) {
	snap, err := Load(filepath.Join(t.TempDir(), "db_schema.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap != nil {
		t.Fatal("missing snapshot should load as nil")
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "db_schema.json")
	if err := sampleSnapshot().Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap == nil || len(snap.Tables) != 3 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Tables[0].Name != "orders" || snap.Tables[0].Columns[0].Type != "bigint" {
		t.Fatalf("first table = %+v", snap.Tables[0])
	}
	if len(snap.Enums) != 1 || snap.Enums[0].Values[1] != "paid" {
		t.Fatalf("enums = %+v", snap.Enums)
	}
}

func TestRelevantPreservesSnapshotOrder(t *testing.T) {
	snap := sampleSnapshot()
	got := snap.Relevant([]string{"invoices", "orders"})
	if len(got) != 2 {
		t.Fatalf("relevant = %+v", got)
	}
	if got[0].Name != "orders" || got[1].Name != "invoices" {
		t.Fatalf("order not preserved: %s, %s", got[0].Name, got[1].Name)
	}
}

func TestRelevantEdgeCases(t *testing.T) {
	snap := sampleSnapshot()
	if got := snap.Relevant(nil); got != nil {
		t.Fatalf("relevant(nil) = %+v", got)
	}
	if got := snap.Relevant([]string{"nonexistent"}); got != nil {
		t.Fatalf("relevant(miss) = %+v", got)
	}
	var nilSnap *Snapshot
	if got := nilSnap.Relevant([]string{"orders"}); got != nil {
		t.Fatalf("nil snapshot relevant = %+v", got)
	}
}

func TestEmptySnapshotCarriesNote(t *testing.T) {
	snap := Empty("no database configured")
	if snap.Note != "no database configured" {
		t.Fatalf("note = %q", snap.Note)
	}
	if snap.Tables == nil || snap.Functions == nil {
		t.Fatal("empty snapshot should have non-nil slices")
	}
}
