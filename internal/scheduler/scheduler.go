// Package scheduler selects which scenarios to document next. Selection is
// deterministic: manifest order minus the done set, so a re-run after a
// partial failure resumes exactly where the previous run stopped instead of
// reshuffling.
package scheduler

import (
	"fmt"

	"github.com/yourusername/autodoc/internal/manifest"
	"github.com/yourusername/autodoc/internal/progress"
)

// Scheduler picks pending scenarios from the manifest inventory.
type Scheduler struct {
	manifest *manifest.Manifest
	store    *progress.Store
}

// New wires a scheduler to its inventory and progress store.
func New(m *manifest.Manifest, store *progress.Store) (*Scheduler, error) {
	if m == nil {
		return nil, fmt.Errorf("scheduler: manifest is required")
	}
	if store == nil {
		return nil, fmt.Errorf("scheduler: progress store is required")
	}
	return &Scheduler{manifest: m, store: store}, nil
}

// Next returns up to count pending scenarios in manifest order, optionally
// restricted to active ones. count <= 0 means no limit. Fewer than count
// remaining is not an error; an empty result signals nothing pending.
func (s *Scheduler) Next(count int, activeOnly bool) ([]manifest.Scenario, error) {
	rec, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	var selected []manifest.Scenario
	for _, scenario := range s.manifest.Scenarios {
		if rec.Done(scenario.ID) {
			continue
		}
		if activeOnly && !scenario.IsActive {
			continue
		}
		selected = append(selected, scenario)
		if count > 0 && len(selected) >= count {
			break
		}
	}
	return selected, nil
}
