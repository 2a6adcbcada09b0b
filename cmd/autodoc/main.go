// cmd/autodoc/main.go
//
// This is the entry point for the autodoc CLI. It batches documentation of
// Make.com scenarios by handing prepared task files to an external AI agent,
// one scenario at a time, and tracking completion durably across runs.
//
// Flow for a plain invocation:
// 1. Load config + manifest, select the next pending scenarios
// 2. Ensure each has a prepared task file
// 3. Invoke the agent, verify the documentation artifact exists, record it

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/autodoc/internal/agent"
	"github.com/yourusername/autodoc/internal/config"
	"github.com/yourusername/autodoc/internal/logbook"
	"github.com/yourusername/autodoc/internal/manifest"
	"github.com/yourusername/autodoc/internal/orchestrator"
	"github.com/yourusername/autodoc/internal/progress"
	"github.com/yourusername/autodoc/internal/report"
	"github.com/yourusername/autodoc/internal/scheduler"
	"github.com/yourusername/autodoc/internal/schema"
	"github.com/yourusername/autodoc/internal/task"
	"github.com/yourusername/autodoc/internal/tui"
)

func main() {
	count := flag.Int("count", 1, "how many pending scenarios to process")
	id := flag.Int64("id", 0, "process one specific scenario id (overrides -count)")
	activeOnly := flag.Bool("active-only", false, "restrict selection to active scenarios")
	status := flag.Bool("status", false, "print progress and exit")
	verbose := flag.Bool("verbose", false, "with -status: per-category breakdown")
	watch := flag.Bool("watch", false, "live progress dashboard")
	setup := flag.Bool("setup", false, "one-time init: dump schema and prepare all tasks")
	schemaDump := flag.Bool("schema-dump", false, "refresh the cached database schema and exit")
	prepare := flag.Bool("prepare", false, "prepare task files only (with -id, -all, or -active-only)")
	all := flag.Bool("all", false, "with -prepare: every manifest entry")
	complete := flag.Bool("complete", false, "mark a scenario documented (requires -id)")
	force := flag.Bool("force", false, "with -complete: mark done even without a doc artifact")
	next := flag.Bool("next", false, "preview upcoming scenarios without running")
	index := flag.Bool("index", false, "regenerate documentation index files and exit")
	dryRun := flag.Bool("dry-run", false, "prepare tasks but do not invoke the agent")
	pause := flag.Int("pause", 0, "seconds between sequential invocations (0 = config value)")
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		die("determine working directory: %v", err)
	}
	projectDir, err := filepath.Abs(cwd)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	if err := config.InitAutodocDir(projectDir); err != nil {
		die("init %s: %v", config.AutodocDir, err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		die("load config: %v", err)
	}
	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		die("open journal: %v", err)
	}
	store := progress.NewStore(cfg.ProgressPath())

	switch {
	case *schemaDump:
		runSchemaDump(cfg)
	case *setup:
		runSetup(cfg, journal)
	case *status:
		runStatus(cfg, store, *verbose)
	case *watch:
		runWatch(cfg, store, journal)
	case *index:
		runIndex(cfg, store)
	case *prepare:
		runPrepare(cfg, *id, *all, *activeOnly)
	case *complete:
		runComplete(cfg, store, *id, *force)
	case *next:
		runNext(cfg, store, *count, *activeOnly)
	default:
		runBatch(cfg, store, journal, *id, *count, *activeOnly, *dryRun, pauseDuration(cfg, *pause))
	}
}

func runSchemaDump(cfg *config.Config) {
	snap := dumpSchema(cfg)
	fmt.Printf("Schema snapshot written to %s (%d tables, %d functions, %d enums)\n",
		cfg.SchemaPath(), snap.TableCount, snap.FunctionCount, snap.EnumCount)
}

func runSetup(cfg *config.Config, journal *logbook.Logbook) {
	fmt.Println("autodoc setup")
	fmt.Println("==================================================")

	m := loadManifest(cfg)
	fmt.Printf("  snapshot: %s (%d scenarios)\n", cfg.SnapshotDir(), len(m.Scenarios))

	snap := dumpSchema(cfg)
	fmt.Printf("  schema: %d tables, %d functions\n", snap.TableCount, snap.FunctionCount)

	preparer := task.NewPreparer(m, snap, cfg.TasksDir())
	result := preparer.PrepareAll(false)
	for _, failure := range result.Failed {
		fmt.Fprintf(os.Stderr, "  [%d] prepare failed: %v\n", failure.ID, failure.Err)
	}
	fmt.Printf("  tasks prepared: %d ok, %d failed\n", len(result.Prepared), len(result.Failed))
	journal.Info("setup: %d tasks prepared, %d failed", len(result.Prepared), len(result.Failed))

	fmt.Println()
	fmt.Println("Next step: run `autodoc` to document the next pending scenario,")
	fmt.Println("or `autodoc -count 5` for a batch.")
}

func runStatus(cfg *config.Config, store *progress.Store, verbose bool) {
	m := loadManifest(cfg)
	reporter := report.NewReporter(m, store)
	out, err := reporter.Status(verbose)
	if err != nil {
		die("status: %v", err)
	}
	fmt.Println(out)
}

func runWatch(cfg *config.Config, store *progress.Store, journal *logbook.Logbook) {
	m := loadManifest(cfg)
	if err := tui.Run(m, store, journal); err != nil {
		die("watch: %v", err)
	}
}

func runIndex(cfg *config.Config, store *progress.Store) {
	m := loadManifest(cfg)
	writer := report.NewIndexWriter(m, store, cfg.DocsDir(), cfg.FindingsDir())
	written, err := writer.WriteAll()
	if err != nil {
		die("index: %v", err)
	}
	for _, path := range written {
		fmt.Printf("Index written: %s\n", path)
	}
}

func runPrepare(cfg *config.Config, id int64, all, activeOnly bool) {
	if id == 0 && !all && !activeOnly {
		die("specify -id, -all, or -active-only with -prepare")
	}
	m := loadManifest(cfg)
	snap := loadSchema(cfg)
	preparer := task.NewPreparer(m, snap, cfg.TasksDir())

	if id != 0 {
		path, err := preparer.Prepare(id)
		if err != nil {
			die("prepare %d: %v", id, err)
		}
		fmt.Printf("Task prepared: %s\n", path)
		return
	}
	result := preparer.PrepareAll(activeOnly)
	for _, failure := range result.Failed {
		fmt.Fprintf(os.Stderr, "  [%d] prepare failed: %v\n", failure.ID, failure.Err)
	}
	fmt.Printf("Prepared: %d | Errors: %d\n", len(result.Prepared), len(result.Failed))
}

func runComplete(cfg *config.Config, store *progress.Store, id int64, force bool) {
	if id == 0 {
		die("-complete requires -id")
	}
	m := loadManifest(cfg)
	if _, err := m.Lookup(id); err != nil {
		die("complete: %v", err)
	}
	docFile := orchestrator.VerifyArtifact(cfg.DocsDir(), id)
	if docFile == "" && !force {
		die("no documentation found at %s/%d_*.md; use -force to mark done anyway", cfg.DocsDir(), id)
	}
	findingsFile := orchestrator.VerifyArtifact(cfg.FindingsDir(), id)
	if err := store.MarkDone(id, docFile, findingsFile); err != nil {
		die("complete: %v", err)
	}
	rec, err := store.Load()
	if err != nil {
		die("complete: %v", err)
	}
	summary := rec.Summarize(len(m.Scenarios))
	fmt.Printf("Scenario %d marked documented. Progress: %d/%d (%d%%)\n",
		id, summary.Done, summary.Total, summary.Percent)
}

func runNext(cfg *config.Config, store *progress.Store, count int, activeOnly bool) {
	m := loadManifest(cfg)
	sched, err := scheduler.New(m, store)
	if err != nil {
		die("next: %v", err)
	}
	scenarios, err := sched.Next(count, activeOnly)
	if err != nil {
		die("next: %v", err)
	}
	preparer := task.NewPreparer(m, loadSchema(cfg), cfg.TasksDir())
	fmt.Println(report.NextPreview(scenarios, preparer.Exists))
}

func runBatch(cfg *config.Config, store *progress.Store, journal *logbook.Logbook, id int64, count int, activeOnly, dryRun bool, pause time.Duration) {
	m := loadManifest(cfg)

	invoker := agent.ExecInvoker{
		Command: cfg.Project.Agent.Command,
		Args:    cfg.Project.Agent.Args,
		Dir:     cfg.ProjectDir,
	}
	if !dryRun {
		if err := invoker.CheckInstalled(); err != nil {
			die("prerequisite: %v (configure agent.command in %s)", err, cfg.ProjectConfigPath())
		}
	}

	var scenarios []manifest.Scenario
	if id != 0 {
		scenario, err := m.Lookup(id)
		if err != nil {
			die("select: %v", err)
		}
		scenarios = []manifest.Scenario{scenario}
	} else {
		sched, err := scheduler.New(m, store)
		if err != nil {
			die("select: %v", err)
		}
		scenarios, err = sched.Next(count, activeOnly)
		if err != nil {
			die("select: %v", err)
		}
	}
	if len(scenarios) == 0 {
		fmt.Println("Nothing pending: all scenarios are documented.")
		return
	}

	preparer := task.NewPreparer(m, loadSchema(cfg), cfg.TasksDir())
	orch := orchestrator.New(preparer, store, invoker, journal, cfg.DocsDir(), cfg.FindingsDir(),
		orchestrator.WithPause(pause),
		orchestrator.WithDryRun(dryRun),
	)

	verb := "Documenting"
	if dryRun {
		verb = "Dry run over"
	}
	fmt.Printf("%s %d scenario(s):\n", verb, len(scenarios))
	rep, err := orch.Run(context.Background(), scenarios)
	if err != nil {
		die("run: %v", err)
	}
	fmt.Printf("\nRun %s: %d succeeded, %d failed\n", rep.RunID, rep.Succeeded(), rep.Failed())
}

func loadManifest(cfg *config.Config) *manifest.Manifest {
	m, err := manifest.Load(cfg.SnapshotDir())
	if err != nil {
		if errors.Is(err, manifest.ErrManifestMissing) {
			die("prerequisite: %v", err)
		}
		die("load manifest: %v", err)
	}
	return m
}

// loadSchema returns the cached snapshot, nil when none was dumped yet.
func loadSchema(cfg *config.Config) *schema.Snapshot {
	snap, err := schema.Load(cfg.SchemaPath())
	if err != nil {
		die("load schema snapshot: %v", err)
	}
	if snap == nil {
		fmt.Fprintln(os.Stderr, "WARN: no schema snapshot; run `autodoc -schema-dump` to enrich tasks with database info")
	}
	return snap
}

// dumpSchema refreshes the cached snapshot, writing an empty placeholder when
// no database URL is configured.
func dumpSchema(cfg *config.Config) *schema.Snapshot {
	var snap *schema.Snapshot
	dbURL := cfg.DatabaseURL()
	if dbURL == "" {
		fmt.Fprintf(os.Stderr, "WARN: %s not set; writing empty schema snapshot\n", config.DatabaseURLEnv)
		snap = schema.Empty(fmt.Sprintf("schema unavailable - configure %s", config.DatabaseURLEnv))
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		dumped, err := schema.Dump(ctx, dbURL)
		if err != nil {
			die("schema dump: %v", err)
		}
		snap = dumped
	}
	if err := snap.Save(cfg.SchemaPath()); err != nil {
		die("schema dump: %v", err)
	}
	return snap
}

func pauseDuration(cfg *config.Config, flagSeconds int) time.Duration {
	seconds := flagSeconds
	if seconds <= 0 {
		seconds = cfg.Project.PauseSeconds
	}
	return time.Duration(seconds) * time.Second
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
