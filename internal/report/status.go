// Package report renders human-readable progress summaries and regenerates
// the consolidated markdown indexes for documentation and findings.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/autodoc/internal/manifest"
	"github.com/yourusername/autodoc/internal/progress"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

const maxPendingPerCategory = 5

// Reporter is a pure read over the progress store and manifest inventory.
type Reporter struct {
	manifest *manifest.Manifest
	store    *progress.Store
}

// NewReporter wires a reporter.
func NewReporter(m *manifest.Manifest, store *progress.Store) *Reporter {
	return &Reporter{manifest: m, store: store}
}

// Status renders the progress summary. verbose adds a per-category breakdown
// with the first pending scenarios in each.
func (r *Reporter) Status(verbose bool) (string, error) {
	rec, err := r.store.Load()
	if err != nil {
		return "", err
	}
	summary := rec.Summarize(len(r.manifest.Scenarios))

	activeTotal := r.manifest.ActiveCount()
	activeDone := 0
	for _, s := range r.manifest.Scenarios {
		if s.IsActive && rec.Done(s.ID) {
			activeDone++
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Documentation Status"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Total scenarios:  %d\n", summary.Total)
	fmt.Fprintf(&b, "  Documented:       %s\n", doneStyle.Render(fmt.Sprintf("%d/%d (%d%%)", summary.Done, summary.Total, summary.Percent)))
	fmt.Fprintf(&b, "  Pending:          %d\n\n", summary.Pending)
	fmt.Fprintf(&b, "  Active:           %d/%d documented\n", activeDone, activeTotal)
	fmt.Fprintf(&b, "  Inactive:         %d/%d documented\n", summary.Done-activeDone, summary.Total-activeTotal)

	if rec.StartedAt != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, "  Started:          %s\n", dimStyle.Render(rec.StartedAt))
		fmt.Fprintf(&b, "  Last activity:    %s\n", dimStyle.Render(rec.LastUpdated))
	}

	if verbose {
		b.WriteString("\n")
		b.WriteString(r.categoryBreakdown(rec))
	}
	return b.String(), nil
}

func (r *Reporter) categoryBreakdown(rec progress.Record) string {
	type categoryInfo struct {
		total   int
		done    int
		pending []manifest.Scenario
	}
	byCat := map[string]*categoryInfo{}
	for _, s := range r.manifest.Scenarios {
		info, ok := byCat[s.Category]
		if !ok {
			info = &categoryInfo{}
			byCat[s.Category] = info
		}
		info.total++
		if rec.Done(s.ID) {
			info.done++
		} else {
			info.pending = append(info.pending, s)
		}
	}
	categories := make([]string, 0, len(byCat))
	for cat := range byCat {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString(headerStyle.Render("By category"))
	b.WriteString("\n")
	for _, cat := range categories {
		info := byCat[cat]
		fmt.Fprintf(&b, "\n  [%s] %d/%d\n", cat, info.done, info.total)
		for i, s := range info.pending {
			if i >= maxPendingPerCategory {
				fmt.Fprintf(&b, "    %s\n", dimStyle.Render(fmt.Sprintf("... and %d more", len(info.pending)-maxPendingPerCategory)))
				break
			}
			state := warnStyle.Render("OFF")
			if s.IsActive {
				state = doneStyle.Render("ON ")
			}
			fmt.Fprintf(&b, "    %s [%d] %s\n", state, s.ID, s.Name)
		}
	}
	return b.String()
}

// NextPreview renders the upcoming scenarios without running anything.
func NextPreview(scenarios []manifest.Scenario, taskExists func(int64) bool) string {
	if len(scenarios) == 0 {
		return doneStyle.Render("All scenarios are documented.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Next %d scenario(s) to document:\n\n", len(scenarios))
	for _, s := range scenarios {
		state := "INACTIVE"
		if s.IsActive {
			state = "ACTIVE"
		}
		ready := warnStyle.Render("task missing")
		if taskExists(s.ID) {
			ready = doneStyle.Render("task ready")
		}
		fmt.Fprintf(&b, "  [%d] %s\n", s.ID, s.Name)
		fmt.Fprintf(&b, "      category: %s | %s | %s\n", s.Category, state, ready)
	}
	return b.String()
}
