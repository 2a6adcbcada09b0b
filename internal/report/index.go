package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/autodoc/internal/manifest"
	"github.com/yourusername/autodoc/internal/progress"
)

// IndexWriter regenerates the consolidated markdown indexes.
type IndexWriter struct {
	manifest    *manifest.Manifest
	store       *progress.Store
	docsDir     string
	findingsDir string
	now         func() time.Time
}

// NewIndexWriter wires an index writer.
func NewIndexWriter(m *manifest.Manifest, store *progress.Store, docsDir, findingsDir string) *IndexWriter {
	return &IndexWriter{
		manifest:    m,
		store:       store,
		docsDir:     docsDir,
		findingsDir: findingsDir,
		now:         time.Now,
	}
}

// WriteAll regenerates the documentation index and, when findings files
// exist, the findings index. Returns the paths written.
func (w *IndexWriter) WriteAll() ([]string, error) {
	rec, err := w.store.Load()
	if err != nil {
		return nil, err
	}

	var written []string
	docIndex := filepath.Join(w.docsDir, "index.md")
	if err := os.MkdirAll(w.docsDir, 0o755); err != nil {
		return nil, fmt.Errorf("report: ensure docs dir: %w", err)
	}
	if err := os.WriteFile(docIndex, []byte(w.renderDocsIndex(rec)), 0o644); err != nil {
		return nil, fmt.Errorf("report: write %s: %w", docIndex, err)
	}
	written = append(written, docIndex)

	findings, err := filepath.Glob(filepath.Join(w.findingsDir, "*_findings.md"))
	if err != nil {
		return written, fmt.Errorf("report: scan findings: %w", err)
	}
	if len(findings) > 0 {
		sort.Strings(findings)
		findingsIndex := filepath.Join(w.findingsDir, "index.md")
		if err := os.WriteFile(findingsIndex, []byte(w.renderFindingsIndex(findings)), 0o644); err != nil {
			return written, fmt.Errorf("report: write %s: %w", findingsIndex, err)
		}
		written = append(written, findingsIndex)
	}
	return written, nil
}

func (w *IndexWriter) renderDocsIndex(rec progress.Record) string {
	byCat := map[string][]manifest.Scenario{}
	for _, s := range w.manifest.Scenarios {
		byCat[s.Category] = append(byCat[s.Category], s)
	}
	categories := make([]string, 0, len(byCat))
	for cat := range byCat {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	summary := rec.Summarize(len(w.manifest.Scenarios))

	var b strings.Builder
	b.WriteString("# Make.com Scenario Documentation Index\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", w.now().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**Snapshot:** %s\n\n", w.manifest.SnapshotDir)
	fmt.Fprintf(&b, "**Total:** %d scenarios | **Documented:** %d\n", summary.Total, summary.Done)

	for _, cat := range categories {
		fmt.Fprintf(&b, "\n## %s\n\n", cat)
		b.WriteString("| Done | ID | Name | Active | Doc |\n")
		b.WriteString("|------|----|------|--------|-----|\n")
		for _, s := range byCat[cat] {
			done := " "
			if rec.Done(s.ID) {
				done = "x"
			}
			active := "no"
			if s.IsActive {
				active = "yes"
			}
			link := ""
			if rec.Done(s.ID) {
				if doc := firstDoc(w.docsDir, s.ID); doc != "" {
					link = fmt.Sprintf("[view](%s)", filepath.Base(doc))
				}
			}
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s |\n", done, s.ID, s.Name, active, link)
		}
	}
	return b.String()
}

func (w *IndexWriter) renderFindingsIndex(files []string) string {
	var b strings.Builder
	b.WriteString("# Findings Index\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", w.now().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**Total files:** %d\n\n", len(files))
	for _, f := range files {
		base := filepath.Base(f)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		fmt.Fprintf(&b, "- [%s](%s)\n", stem, base)
	}
	return b.String()
}

func firstDoc(dir string, id int64) string {
	matches, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("%d_*.md", id)))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}
