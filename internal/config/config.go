// internal/config/config.go
//
// This package handles configuration and the .autodoc directory structure.
// Every project that uses autodoc gets a .autodoc/ folder created in its root,
// plus docs/ output directories that the external agent writes into.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AutodocDir is the name of the directory we create in each project
	AutodocDir = ".autodoc"

	// SnapshotEnv overrides the configured snapshot directory.
	SnapshotEnv = "AUTODOC_SNAPSHOT"

	// DatabaseURLEnv carries the Postgres connection string for schema dumps.
	DatabaseURLEnv = "SUPABASE_DB_URL"

	defaultSnapshotDir  = "snapshots/latest"
	defaultAgentCommand = "claude"
	defaultPauseSeconds = 5
)

const defaultProjectConfigYAML = `# autodoc project configuration
version: 1

# Snapshot directory holding manifest.json and the exported blueprints.
# AUTODOC_SNAPSHOT overrides this at runtime.
snapshot: snapshots/latest

# External documentation agent. The constructed instruction is appended
# as the final argument.
agent:
  command: claude
  args: ["-p"]

# Seconds to wait between sequential agent invocations.
pause_seconds: 5
`

// AgentConfig describes how to launch the external documentation agent.
type AgentConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// ProjectConfig models .autodoc/config.yaml.
type ProjectConfig struct {
	Version      int         `yaml:"version"`
	Snapshot     string      `yaml:"snapshot"`
	Agent        AgentConfig `yaml:"agent"`
	PauseSeconds int         `yaml:"pause_seconds"`
}

// Config holds the runtime configuration for autodoc.
type Config struct {
	// ProjectDir is the directory where the user ran `autodoc` from
	ProjectDir string

	// AutodocProjectDir is ProjectDir/.autodoc
	AutodocProjectDir string

	Project ProjectConfig
}

// InitAutodocDir creates the .autodoc directory structure plus the docs
// output directories the agent writes into.
//
// Structure created:
// .autodoc/
// ├── logs/          <- Run journal
// ├── state/         <- Progress file and cached schema snapshot
// └── tasks/         <- Prepared per-scenario task files
// docs/
// ├── scenarios/     <- Documentation files produced by the agent
// └── findings/      <- Findings files produced by the agent
func InitAutodocDir(projectDir string) error {
	autodocDir := filepath.Join(projectDir, AutodocDir)

	dirs := []string{
		filepath.Join(autodocDir, "logs"),
		filepath.Join(autodocDir, "state"),
		filepath.Join(autodocDir, "tasks"),
		filepath.Join(projectDir, "docs", "scenarios"),
		filepath.Join(projectDir, "docs", "findings"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return ensureProjectConfig(filepath.Join(autodocDir, "config.yaml"))
}

// NewConfig creates a Config populated with project settings. A .env file in
// the project directory is loaded first so SUPABASE_DB_URL and
// AUTODOC_SNAPSHOT can live there instead of shell history.
func NewConfig(projectDir string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(projectDir, ".env"))

	cfg := &Config{
		ProjectDir:        projectDir,
		AutodocProjectDir: filepath.Join(projectDir, AutodocDir),
		Project:           defaultProjectConfig(),
	}

	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}

	if override := strings.TrimSpace(os.Getenv(SnapshotEnv)); override != "" {
		cfg.Project.Snapshot = override
	}

	return cfg, nil
}

// SnapshotDir returns the absolute path of the blueprint snapshot directory.
func (c *Config) SnapshotDir() string {
	return resolvePath(c.ProjectDir, c.Project.Snapshot)
}

// ManifestPath returns the manifest.json location inside the snapshot.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.SnapshotDir(), "manifest.json")
}

// TasksDir returns the directory holding prepared task files.
func (c *Config) TasksDir() string {
	return filepath.Join(c.AutodocProjectDir, "tasks")
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.AutodocProjectDir, "logs")
}

// StateDir returns the path to the state directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.AutodocProjectDir, "state")
}

// ProgressPath returns the progress store file location.
func (c *Config) ProgressPath() string {
	return filepath.Join(c.StateDir(), "progress.json")
}

// SchemaPath returns the cached database schema snapshot location.
func (c *Config) SchemaPath() string {
	return filepath.Join(c.StateDir(), "db_schema.json")
}

// DocsDir returns the directory the agent writes documentation files into.
func (c *Config) DocsDir() string {
	return filepath.Join(c.ProjectDir, "docs", "scenarios")
}

// FindingsDir returns the directory the agent writes findings files into.
func (c *Config) FindingsDir() string {
	return filepath.Join(c.ProjectDir, "docs", "findings")
}

// JournalPath returns the run journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "autodoc.log")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.AutodocProjectDir, "config.yaml")
}

// DatabaseURL returns the Postgres connection string, empty when unset.
func (c *Config) DatabaseURL() string {
	return strings.TrimSpace(os.Getenv(DatabaseURLEnv))
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:      1,
		Snapshot:     defaultSnapshotDir,
		Agent:        AgentConfig{Command: defaultAgentCommand, Args: []string{"-p"}},
		PauseSeconds: defaultPauseSeconds,
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Snapshot) == "" {
		pc.Snapshot = defaultSnapshotDir
	}
	if strings.TrimSpace(pc.Agent.Command) == "" {
		pc.Agent = AgentConfig{Command: defaultAgentCommand, Args: []string{"-p"}}
	}
	if pc.PauseSeconds == 0 {
		pc.PauseSeconds = defaultPauseSeconds
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Snapshot = strings.TrimSpace(pc.Snapshot)
	pc.Agent.Command = strings.TrimSpace(pc.Agent.Command)
	for i := range pc.Agent.Args {
		pc.Agent.Args[i] = strings.TrimSpace(pc.Agent.Args[i])
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Snapshot == "" {
		return fmt.Errorf("snapshot directory is required")
	}
	if pc.Agent.Command == "" {
		return fmt.Errorf("agent.command is required")
	}
	if pc.PauseSeconds < 0 {
		return fmt.Errorf("pause_seconds must not be negative")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return base
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
