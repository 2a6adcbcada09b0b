// Package task builds the self-contained input bundle the external agent
// consumes for one scenario: blueprint, manifest metadata, and the slice of
// the cached database schema the blueprint actually touches.
package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yourusername/autodoc/internal/manifest"
	"github.com/yourusername/autodoc/internal/schema"
)

// ErrBlueprintMissing is returned when a manifest entry points at a blueprint
// file that does not exist in the snapshot.
var ErrBlueprintMissing = errors.New("task: blueprint not found")

var subscenarioPattern = regexp.MustCompile(`"scenario":\s*"?(\d+)"?`)

// Task is the merged input bundle for one scenario. Content is a pure
// function of the blueprint, the manifest entry, and the schema snapshot, so
// re-preparing with unchanged inputs produces byte-identical files.
type Task struct {
	ScenarioID           int64           `json:"scenario_id"`
	ScenarioName         string          `json:"scenario_name"`
	Category             string          `json:"category"`
	IsActive             bool            `json:"is_active"`
	Type                 string          `json:"type"`
	ModuleCount          int             `json:"module_count"`
	TablesDetected       []string        `json:"tables_detected"`
	SubscenariosDetected []string        `json:"subscenarios_detected"`
	Blueprint            json.RawMessage `json:"blueprint"`
	RelevantDBSchema     []schema.Table  `json:"relevant_db_schema"`
}

// Preparer writes task files for scenarios in the manifest inventory.
type Preparer struct {
	manifest *manifest.Manifest
	snapshot *schema.Snapshot
	tasksDir string
}

// NewPreparer wires a preparer to its inputs. snapshot may be nil; tasks are
// then prepared without schema enrichment.
func NewPreparer(m *manifest.Manifest, snapshot *schema.Snapshot, tasksDir string) *Preparer {
	return &Preparer{manifest: m, snapshot: snapshot, tasksDir: tasksDir}
}

// TaskPath returns the task file location for a scenario id.
func (p *Preparer) TaskPath(id int64) string {
	return filepath.Join(p.tasksDir, fmt.Sprintf("%d_task.json", id))
}

// Exists reports whether a task file is already on disk for the id.
func (p *Preparer) Exists(id int64) bool {
	info, err := os.Stat(p.TaskPath(id))
	return err == nil && !info.IsDir() && info.Size() > 0
}

// Prepare builds and writes the task file for one scenario. Re-running
// overwrites deterministically. Returns the written path.
func (p *Preparer) Prepare(id int64) (string, error) {
	scenario, err := p.manifest.Lookup(id)
	if err != nil {
		return "", err
	}

	blueprintPath := p.manifest.BlueprintPath(scenario)
	raw, err := os.ReadFile(blueprintPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrBlueprintMissing, blueprintPath)
		}
		return "", fmt.Errorf("task: read blueprint %s: %w", blueprintPath, err)
	}
	if !json.Valid(raw) {
		return "", fmt.Errorf("task: blueprint %s is not valid json", blueprintPath)
	}

	tables := p.detectTables(raw)
	t := Task{
		ScenarioID:           scenario.ID,
		ScenarioName:         scenario.Name,
		Category:             scenario.Category,
		IsActive:             scenario.IsActive,
		Type:                 scenarioType(scenario),
		ModuleCount:          countModules(raw),
		TablesDetected:       tables,
		SubscenariosDetected: detectSubscenarios(raw),
		Blueprint:            json.RawMessage(raw),
		RelevantDBSchema:     p.snapshot.Relevant(tables),
	}

	encoded, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("task: encode task %d: %w", id, err)
	}
	if err := os.MkdirAll(p.tasksDir, 0o755); err != nil {
		return "", fmt.Errorf("task: ensure tasks dir: %w", err)
	}
	path := p.TaskPath(id)
	if err := os.WriteFile(path, append(encoded, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("task: write %s: %w", path, err)
	}
	return path, nil
}

// BatchResult collects the outcome of preparing many scenarios. One malformed
// blueprint must not block the rest of the inventory.
type BatchResult struct {
	Prepared []int64
	Failed   []BatchFailure
}

// BatchFailure records a single preparation failure.
type BatchFailure struct {
	ID  int64
	Err error
}

// PrepareAll prepares a task for every manifest entry, optionally restricted
// to active scenarios, collecting per-id failures without aborting.
func (p *Preparer) PrepareAll(activeOnly bool) BatchResult {
	var result BatchResult
	for _, s := range p.manifest.Scenarios {
		if activeOnly && !s.IsActive {
			continue
		}
		if _, err := p.Prepare(s.ID); err != nil {
			result.Failed = append(result.Failed, BatchFailure{ID: s.ID, Err: err})
			continue
		}
		result.Prepared = append(result.Prepared, s.ID)
	}
	return result
}

// detectTables reports schema table names mentioned anywhere in the
// blueprint, in snapshot order. Substring matching against the serialized
// blueprint mirrors how module parameters embed table names.
func (p *Preparer) detectTables(raw []byte) []string {
	if p.snapshot == nil || len(p.snapshot.Tables) == 0 {
		return []string{}
	}
	haystack := strings.ToLower(string(raw))
	found := []string{}
	seen := map[string]struct{}{}
	for _, table := range p.snapshot.Tables {
		name := strings.ToLower(table.Name)
		if _, dup := seen[table.Name]; dup {
			continue
		}
		if strings.Contains(haystack, name) {
			found = append(found, table.Name)
			seen[table.Name] = struct{}{}
		}
	}
	return found
}

// detectSubscenarios extracts ids of scenarios invoked through CallScenario
// modules, sorted numerically for stable output.
func detectSubscenarios(raw []byte) []string {
	if !strings.Contains(string(raw), "CallScenario") {
		return []string{}
	}
	matches := subscenarioPattern.FindAllSubmatch(raw, -1)
	seen := map[string]struct{}{}
	ids := []string{}
	for _, m := range matches {
		id := string(m[1])
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseInt(ids[i], 10, 64)
		b, _ := strconv.ParseInt(ids[j], 10, 64)
		return a < b
	})
	return ids
}

type flowNode struct {
	Routes []struct {
		Flow []flowNode `json:"flow"`
	} `json:"routes"`
}

// countModules walks the blueprint flow, descending into router branches.
func countModules(raw []byte) int {
	var blueprint struct {
		Flow []flowNode `json:"flow"`
	}
	if err := json.Unmarshal(raw, &blueprint); err != nil {
		return 0
	}
	return countFlow(blueprint.Flow)
}

func countFlow(flow []flowNode) int {
	count := 0
	for _, node := range flow {
		count++
		for _, route := range node.Routes {
			count += countFlow(route.Flow)
		}
	}
	return count
}

func scenarioType(s manifest.Scenario) string {
	if strings.TrimSpace(s.Type) == "" {
		return "scenario"
	}
	return s.Type
}
