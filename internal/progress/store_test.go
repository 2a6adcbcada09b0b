package progress

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	clock := func() time.Time { return time.Date(2026, 2, 26, 12, 0, 0, 0, time.UTC) }
	return NewStore(filepath.Join(dir, "progress.json"), WithClock(clock))
}

func TestLoadMissingFileReturnsEmptyRecord(t *testing.T) {
	store := testStore(t)
	rec, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rec.Completed) != 0 {
		t.Fatalf("expected empty completed set, got %d", len(rec.Completed))
	}
	if rec.Completed == nil || rec.Failures == nil {
		t.Fatal("expected initialized maps")
	}
}

func TestMarkDoneExcludesFromPending(t *testing.T) {
	store := testStore(t)
	if err := store.MarkDone(3730131, "docs/scenarios/3730131_sync.md", ""); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	rec, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	pending := rec.Pending([]int64{100, 3730131, 200})
	if len(pending) != 2 {
		t.Fatalf("pending = %v, want 2 entries", pending)
	}
	if pending[0] != 100 || pending[1] != 200 {
		t.Fatalf("pending order = %v, want [100 200]", pending)
	}
	entry := rec.Completed["3730131"]
	if entry.DocFile != "docs/scenarios/3730131_sync.md" {
		t.Fatalf("doc file = %q", entry.DocFile)
	}
	if entry.CompletedAt == "" {
		t.Fatal("expected completion timestamp")
	}
}

func TestMarkDoneClearsPreviousFailure(t *testing.T) {
	store := testStore(t)
	if err := store.MarkFailed(42, "agent produced nothing"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := store.MarkDone(42, "docs/scenarios/42_x.md", ""); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	rec, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, stillFailed := rec.Failures["42"]; stillFailed {
		t.Fatal("failure entry should be cleared after success")
	}
}

func TestCorruptStoreFailsLoudly(t *testing.T) {
	store := testStore(t)
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrStoreCorrupt) {
		t.Fatalf("expected ErrStoreCorrupt, got %v", err)
	}
	// A corrupt store must survive untouched so history is recoverable.
	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{not json" {
		t.Fatalf("store contents changed: %q", data)
	}
}

func TestSaveLeavesNoTempFileBehind(t *testing.T) {
	store := testStore(t)
	if err := store.MarkDone(1, "", ""); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should be renamed away, stat err = %v", err)
	}
}

func TestSummarize(t *testing.T) {
	store := testStore(t)
	for _, id := range []int64{1, 2, 3, 4, 5} {
		if err := store.MarkDone(id, "", ""); err != nil {
			t.Fatalf("mark done %d: %v", id, err)
		}
	}
	rec, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := rec.Summarize(118)
	if s.Total != 118 || s.Done != 5 || s.Pending != 113 {
		t.Fatalf("summary = %+v, want total 118 done 5 pending 113", s)
	}
	if s.Percent != 4 {
		t.Fatalf("percent = %d, want 4", s.Percent)
	}
}

func TestSummarizeEmptyTotal(t *testing.T) {
	var rec Record
	s := rec.Summarize(0)
	if s.Percent != 0 {
		t.Fatalf("percent = %d, want 0", s.Percent)
	}
}
