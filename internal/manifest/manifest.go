// Package manifest loads the scenario inventory exported alongside a
// blueprint snapshot. The manifest is produced by the export tooling on the
// workflow platform side; this system never assigns or rewrites ids.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when a scenario id is absent from the inventory.
var ErrNotFound = errors.New("manifest: scenario not found")

// ErrManifestMissing is returned when the snapshot has no manifest.json.
var ErrManifestMissing = errors.New("manifest: manifest.json not found")

// Scenario is one workflow automation definition in the external platform.
type Scenario struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	IsActive bool   `json:"is_active"`
	Type     string `json:"type,omitempty"`
	Filename string `json:"filename"`
}

// Manifest is the inventory of all known scenarios, in export order.
type Manifest struct {
	SnapshotDir   string     `json:"-"`
	ScenarioCount int        `json:"scenario_count"`
	Scenarios     []Scenario `json:"scenarios"`

	byID map[int64]int
}

// Load reads manifest.json from the snapshot directory.
func Load(snapshotDir string) (*Manifest, error) {
	path := filepath.Join(snapshotDir, "manifest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (check %s or the snapshot config)", ErrManifestMissing, path, "AUTODOC_SNAPSHOT")
		}
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	m.SnapshotDir = snapshotDir
	m.byID = make(map[int64]int, len(m.Scenarios))
	for i, s := range m.Scenarios {
		m.byID[s.ID] = i
	}
	if m.ScenarioCount == 0 {
		m.ScenarioCount = len(m.Scenarios)
	}
	return &m, nil
}

// Lookup returns the scenario with the given id.
func (m *Manifest) Lookup(id int64) (Scenario, error) {
	idx, ok := m.byID[id]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return m.Scenarios[idx], nil
}

// IDs returns every scenario id in manifest order.
func (m *Manifest) IDs() []int64 {
	ids := make([]int64, 0, len(m.Scenarios))
	for _, s := range m.Scenarios {
		ids = append(ids, s.ID)
	}
	return ids
}

// ActiveCount reports how many scenarios are flagged active.
func (m *Manifest) ActiveCount() int {
	count := 0
	for _, s := range m.Scenarios {
		if s.IsActive {
			count++
		}
	}
	return count
}

// BlueprintPath returns the blueprint export location for a scenario.
func (m *Manifest) BlueprintPath(s Scenario) string {
	return filepath.Join(m.SnapshotDir, s.Filename)
}
