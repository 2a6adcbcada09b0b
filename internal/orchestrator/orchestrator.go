// Package orchestrator drives the documentation batch: for each selected
// scenario it ensures a prepared task exists, invokes the external agent,
// verifies the expected artifacts on disk, and records the outcome.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/autodoc/internal/agent"
	"github.com/yourusername/autodoc/internal/logbook"
	"github.com/yourusername/autodoc/internal/manifest"
	"github.com/yourusername/autodoc/internal/progress"
	"github.com/yourusername/autodoc/internal/task"
)

// maxParallelAgents is fixed at 1 on purpose. The agent's context window is
// the binding resource: interleaved invocations would cross-contaminate its
// working context between unrelated scenarios and produce wrong
// documentation. Do not raise this to "optimize" throughput.
const maxParallelAgents = 1

// failureTailLines bounds how much agent output is surfaced on failure.
const failureTailLines = 10

// State names the per-scenario state machine positions.
type State string

const (
	StateNeedsTask       State = "needs-task"
	StateTaskReady       State = "task-ready"
	StateAgentInvoked    State = "agent-invoked"
	StateVerifiedSuccess State = "verified-success"
	StateVerifiedFailure State = "verified-failure"
)

// Outcome is the terminal record for one scenario within a run.
type Outcome struct {
	Scenario     manifest.Scenario
	State        State
	Reason       string
	DocFile      string
	FindingsFile string
	OutputTail   []string
}

// Report summarizes a whole batch run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Outcomes   []Outcome
}

// Succeeded counts scenarios that reached verified success.
func (r Report) Succeeded() int {
	count := 0
	for _, o := range r.Outcomes {
		if o.State == StateVerifiedSuccess {
			count++
		}
	}
	return count
}

// Failed counts scenarios that reached verified failure.
func (r Report) Failed() int {
	count := 0
	for _, o := range r.Outcomes {
		if o.State == StateVerifiedFailure {
			count++
		}
	}
	return count
}

// Orchestrator processes scenarios strictly sequentially: scenario N+1 only
// begins after scenario N reaches a verified state.
type Orchestrator struct {
	preparer    *task.Preparer
	store       *progress.Store
	invoker     agent.Invoker
	journal     *logbook.Logbook
	docsDir     string
	findingsDir string
	pause       time.Duration
	dryRun      bool
	out         io.Writer
	now         func() time.Time
	sleep       func(time.Duration)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithPause sets the courtesy delay between sequential invocations.
func WithPause(d time.Duration) Option {
	return func(o *Orchestrator) { o.pause = d }
}

// WithDryRun prepares tasks and prints diagnostics without invoking the agent.
func WithDryRun(dry bool) Option {
	return func(o *Orchestrator) { o.dryRun = dry }
}

// WithOutput redirects human-readable progress lines.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w != nil {
			o.out = w
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.now = clock
		}
	}
}

// WithSleep overrides the pause implementation.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// New builds an orchestrator.
func New(preparer *task.Preparer, store *progress.Store, invoker agent.Invoker, journal *logbook.Logbook, docsDir, findingsDir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		preparer:    preparer,
		store:       store,
		invoker:     invoker,
		journal:     journal,
		docsDir:     docsDir,
		findingsDir: findingsDir,
		out:         os.Stdout,
		now:         time.Now,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes the selected scenarios one at a time. Per-scenario failures
// are recorded and the batch continues; only progress-store errors abort the
// run, because continuing without durable bookkeeping risks losing history.
func (o *Orchestrator) Run(ctx context.Context, scenarios []manifest.Scenario) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
		DryRun:    o.dryRun,
	}
	o.journal.Info("run %s started: %d scenario(s), dry_run=%v", report.RunID, len(scenarios), o.dryRun)

	for i, scenario := range scenarios {
		if i > 0 && !o.dryRun && o.pause > 0 {
			o.sleep(o.pause)
		}
		outcome := o.process(ctx, scenario)
		report.Outcomes = append(report.Outcomes, outcome)

		switch outcome.State {
		case StateVerifiedSuccess:
			if err := o.store.MarkDone(scenario.ID, outcome.DocFile, outcome.FindingsFile); err != nil {
				report.FinishedAt = o.now()
				return report, err
			}
			o.journal.Scenario(logbook.LevelInfo, scenario.ID, "documented: %s", outcome.DocFile)
			fmt.Fprintf(o.out, "  [%d] %s: done (%s)\n", scenario.ID, scenario.Name, filepath.Base(outcome.DocFile))
		case StateVerifiedFailure:
			if err := o.store.MarkFailed(scenario.ID, outcome.Reason); err != nil {
				report.FinishedAt = o.now()
				return report, err
			}
			o.journal.Scenario(logbook.LevelError, scenario.ID, "failed: %s", outcome.Reason)
			fmt.Fprintf(o.out, "  [%d] %s: FAILED (%s)\n", scenario.ID, scenario.Name, outcome.Reason)
			for _, line := range outcome.OutputTail {
				fmt.Fprintf(o.out, "      | %s\n", line)
			}
		case StateTaskReady:
			// Dry-run terminal state.
			fmt.Fprintf(o.out, "  [%d] %s\n", scenario.ID, scenario.Name)
			fmt.Fprintf(o.out, "      %s\n", outcome.Reason)
		}
	}

	report.FinishedAt = o.now()
	o.journal.Info("run %s finished: %d ok, %d failed", report.RunID, report.Succeeded(), report.Failed())
	return report, nil
}

// process walks one scenario through the state machine. The agent is never
// invoked without a complete task file on disk.
func (o *Orchestrator) process(ctx context.Context, scenario manifest.Scenario) Outcome {
	outcome := Outcome{Scenario: scenario, State: StateNeedsTask}

	if !o.preparer.Exists(scenario.ID) {
		o.journal.Scenario(logbook.LevelInfo, scenario.ID, "preparing task")
		if _, err := o.preparer.Prepare(scenario.ID); err != nil {
			outcome.State = StateVerifiedFailure
			outcome.Reason = fmt.Sprintf("could not prepare: %v", err)
			return outcome
		}
	}
	if !o.preparer.Exists(scenario.ID) {
		outcome.State = StateVerifiedFailure
		outcome.Reason = "could not prepare: task file still missing"
		return outcome
	}
	outcome.State = StateTaskReady

	if o.dryRun {
		outcome.Reason = o.dryRunDiagnostic(scenario)
		return outcome
	}

	instruction := o.buildInstruction(scenario)
	o.journal.Scenario(logbook.LevelInfo, scenario.ID, "invoking agent")
	outcome.State = StateAgentInvoked
	output, invokeErr := o.invoker.Invoke(ctx, instruction)

	// The process exit status is not trusted as a success proxy; only the
	// artifact on disk counts.
	docFile := findArtifact(o.docsDir, scenario.ID)
	if docFile == "" {
		outcome.State = StateVerifiedFailure
		if invokeErr != nil {
			outcome.Reason = fmt.Sprintf("agent invocation failed: %v", invokeErr)
		} else {
			outcome.Reason = "agent exited cleanly but produced no documentation file"
		}
		outcome.OutputTail = agent.Tail(output, failureTailLines)
		return outcome
	}

	outcome.State = StateVerifiedSuccess
	outcome.DocFile = docFile
	outcome.FindingsFile = findArtifact(o.findingsDir, scenario.ID)
	return outcome
}

// buildInstruction constructs the natural-language prompt handed to the
// agent, naming the task file, both output locations, and the completion
// post-step.
func (o *Orchestrator) buildInstruction(scenario manifest.Scenario) string {
	taskPath := o.preparer.TaskPath(scenario.ID)
	return fmt.Sprintf(
		"Document Make.com scenario %d (%q). Read the prepared task file at %s, which contains the blueprint, detected database tables, and the relevant schema excerpt. "+
			"Write the documentation as markdown to %s/%d_<short-slug>.md and a severity-tagged findings list to %s/%d_findings.md. "+
			"When both files are written, run `autodoc -complete -id %d` to mark the scenario documented.",
		scenario.ID, scenario.Name, taskPath,
		o.docsDir, scenario.ID,
		o.findingsDir, scenario.ID,
		scenario.ID,
	)
}

// dryRunDiagnostic reports what would be sent without consuming agent calls.
func (o *Orchestrator) dryRunDiagnostic(scenario manifest.Scenario) string {
	moduleCount := 0
	if data, err := os.ReadFile(o.preparer.TaskPath(scenario.ID)); err == nil {
		var t struct {
			ModuleCount int `json:"module_count"`
		}
		if json.Unmarshal(data, &t) == nil {
			moduleCount = t.ModuleCount
		}
	}
	status := "inactive"
	if scenario.IsActive {
		status = "active"
	}
	return fmt.Sprintf("category=%s status=%s modules=%d (dry run, agent not invoked)", scenario.Category, status, moduleCount)
}

// findArtifact locates the first output file named with the scenario id
// prefix inside dir, empty string when absent.
func findArtifact(dir string, id int64) string {
	matches, err := filepath.Glob(filepath.Join(dir, fmt.Sprintf("%d_*.md", id)))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// VerifyArtifact exposes the presence check for explicit completion marking.
func VerifyArtifact(dir string, id int64) string {
	return findArtifact(dir, id)
}
