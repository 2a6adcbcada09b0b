// Package schema produces and caches the one-time database schema dump that
// enriches every prepared task. The dump runs at setup time; per-scenario
// processing only ever reads the cached snapshot.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Column describes one table column.
type Column struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default"`
	Comment  *string `json:"comment"`
}

// Constraint describes a key constraint (primary, foreign, unique).
type Constraint struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Column    *string `json:"column"`
	RefTable  *string `json:"ref_table"`
	RefColumn *string `json:"ref_column"`
}

// CheckConstraint carries the raw definition of a check constraint.
type CheckConstraint struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// Table is one base table with its columns and constraints.
type Table struct {
	Schema           string            `json:"schema"`
	Name             string            `json:"name"`
	Columns          []Column          `json:"columns"`
	Constraints      []Constraint      `json:"constraints,omitempty"`
	CheckConstraints []CheckConstraint `json:"check_constraints,omitempty"`
}

// Enum is a user-defined enum type with its ordered values.
type Enum struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Function is a public database function signature.
type Function struct {
	Name    string  `json:"name"`
	Args    string  `json:"args"`
	Returns string  `json:"returns"`
	Comment *string `json:"comment"`
}

// Policy is one row-level security policy.
type Policy struct {
	Name       string   `json:"name"`
	Permissive string   `json:"permissive"`
	Roles      []string `json:"roles"`
	Command    string   `json:"command"`
	Using      *string  `json:"using"`
	WithCheck  *string  `json:"with_check"`
}

// Snapshot is the cached dump of database structure.
type Snapshot struct {
	ExtractedAt   string              `json:"extracted_at,omitempty"`
	Tables        []Table             `json:"tables"`
	Enums         []Enum              `json:"enums,omitempty"`
	Functions     []Function          `json:"functions"`
	RLSPolicies   map[string][]Policy `json:"rls_policies,omitempty"`
	TableCount    int                 `json:"table_count,omitempty"`
	FunctionCount int                 `json:"function_count,omitempty"`
	EnumCount     int                 `json:"enum_count,omitempty"`
	Note          string              `json:"note,omitempty"`
}

// Load reads the cached snapshot. A missing file yields (nil, nil): the
// system degrades to schema-less task preparation, mirroring setup without a
// configured database.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	return &snap, nil
}

// Save writes the snapshot to disk.
func (s *Snapshot) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("schema: ensure dir: %w", err)
	}
	encoded, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("schema: encode: %w", err)
	}
	return os.WriteFile(path, append(encoded, '\n'), 0o644)
}

// Relevant returns only the tables whose names appear in the given set,
// preserving snapshot order.
func (s *Snapshot) Relevant(names []string) []Table {
	if s == nil || len(s.Tables) == 0 || len(names) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	var out []Table
	for _, t := range s.Tables {
		if _, ok := wanted[t.Name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Empty builds the placeholder snapshot written when no database URL is
// configured, so task preparation still works end to end.
func Empty(note string) *Snapshot {
	return &Snapshot{
		Tables:    []Table{},
		Functions: []Function{},
		Note:      note,
	}
}
