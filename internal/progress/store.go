// Package progress persists documentation completion state across runs.
// The progress file is the only cross-run memory this system has, so a
// corrupt file is surfaced loudly instead of being silently reset.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ErrStoreCorrupt is returned when the persisted progress file exists but
// cannot be parsed. Callers must abort rather than overwrite it.
var ErrStoreCorrupt = errors.New("progress: store is corrupt")

// Entry records the completion of one scenario.
type Entry struct {
	CompletedAt  string `json:"completed_at"`
	DocFile      string `json:"doc_file,omitempty"`
	FindingsFile string `json:"findings_file,omitempty"`
}

// Failure records the most recent failed attempt for a scenario. Failures do
// not block re-selection; they exist for operator diagnosis.
type Failure struct {
	Reason string `json:"reason"`
	At     string `json:"at"`
}

// Record is the aggregate persisted state, keyed by scenario id.
type Record struct {
	Completed   map[string]Entry   `json:"completed"`
	Failures    map[string]Failure `json:"errors,omitempty"`
	StartedAt   string             `json:"started_at,omitempty"`
	LastUpdated string             `json:"last_updated,omitempty"`
}

// Summary holds the aggregate counts derived from a Record.
type Summary struct {
	Total   int
	Done    int
	Pending int
	Percent int
}

// Store reads and writes the progress file.
type Store struct {
	path string
	now  func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewStore creates a store backed by the given file path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file backing this store.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted record, or an empty one when no file exists yet.
func (s *Store) Load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return emptyRecord(), nil
		}
		return Record{}, fmt.Errorf("progress: read %s: %w", s.path, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrStoreCorrupt, s.path, err)
	}
	if rec.Completed == nil {
		rec.Completed = map[string]Entry{}
	}
	if rec.Failures == nil {
		rec.Failures = map[string]Failure{}
	}
	return rec, nil
}

// MarkDone records a scenario as documented and persists atomically.
func (s *Store) MarkDone(id int64, docFile, findingsFile string) error {
	rec, err := s.Load()
	if err != nil {
		return err
	}
	stamp := s.now().Format(time.RFC3339)
	rec.Completed[key(id)] = Entry{
		CompletedAt:  stamp,
		DocFile:      docFile,
		FindingsFile: findingsFile,
	}
	delete(rec.Failures, key(id))
	return s.save(rec)
}

// MarkFailed records the latest failure reason for a scenario. The scenario
// stays pending and will be selected again on the next run.
func (s *Store) MarkFailed(id int64, reason string) error {
	rec, err := s.Load()
	if err != nil {
		return err
	}
	rec.Failures[key(id)] = Failure{Reason: reason, At: s.now().Format(time.RFC3339)}
	return s.save(rec)
}

// Done reports whether the given scenario has been marked done.
func (rec Record) Done(id int64) bool {
	_, ok := rec.Completed[key(id)]
	return ok
}

// Pending returns allIDs minus the ids marked done, preserving input order.
func (rec Record) Pending(allIDs []int64) []int64 {
	pending := make([]int64, 0, len(allIDs))
	for _, id := range allIDs {
		if !rec.Done(id) {
			pending = append(pending, id)
		}
	}
	return pending
}

// Summarize derives counts against a known total.
func (rec Record) Summarize(total int) Summary {
	done := len(rec.Completed)
	percent := 0
	if total > 0 {
		percent = done * 100 / total
	}
	return Summary{
		Total:   total,
		Done:    done,
		Pending: total - done,
		Percent: percent,
	}
}

// save persists with write-then-replace so a crash mid-write never leaves a
// partially written progress file visible.
func (s *Store) save(rec Record) error {
	rec.LastUpdated = s.now().Format(time.RFC3339)
	if rec.StartedAt == "" {
		rec.StartedAt = rec.LastUpdated
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("progress: ensure state dir: %w", err)
	}
	encoded, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("progress: encode: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("progress: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("progress: replace %s: %w", s.path, err)
	}
	return nil
}

func emptyRecord() Record {
	return Record{
		Completed: map[string]Entry{},
		Failures:  map[string]Failure{},
	}
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}
