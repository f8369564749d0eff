// internal/config/config.go
//
// This package handles configuration and the .signalpost directory structure.
// Every project that runs signalpost gets a .signalpost/ folder created in
// its working directory.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// SignalpostDir is the name of the directory we create in each project.
	SignalpostDir = ".signalpost"

	defaultLengthLimit       = 280
	defaultExtractTimeout    = 30 * time.Second
	defaultCollaboratorLimit = 60 * time.Second
)

// Platform kinds accepted in config.yaml.
const (
	PlatformKindLog     = "log"
	PlatformKindWebhook = "webhook"
)

const defaultProjectConfigYAML = `# signalpost project configuration
version: 1

# Where previously processed source identifiers are recorded.
# backend: file | memory | postgres
dedup:
  backend: file

# Generation/ranking collaborator endpoint.
collaborator:
  endpoint: http://localhost:8089/v1/generate
  model: default
  timeout: 60s

extraction:
  timeout: 30s

# Platforms to publish approved posts to.
platforms:
  - name: console
    kind: log
    length_limit: 280

# One-paragraph description of the business, used by the relevance gate
# and the drafting prompt.
business_context: ""
`

// Duration wraps time.Duration so config values can be written as "30s"
// or "2m" in yaml.
type Duration time.Duration

// UnmarshalYAML parses a duration string such as "90s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back into its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// PlatformConfig declares one publish target inside .signalpost/config.yaml.
type PlatformConfig struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	WebhookURL  string `yaml:"webhook_url,omitempty"`
	Account     string `yaml:"account,omitempty"`
	LengthLimit int    `yaml:"length_limit,omitempty"`
}

// DedupConfig selects the backend for the processed-urls store.
type DedupConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn,omitempty"`
}

// CollaboratorConfig points at the generation/ranking endpoint.
type CollaboratorConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Model    string   `yaml:"model,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"`
}

// ExtractionConfig bounds individual extraction tasks.
type ExtractionConfig struct {
	Timeout     Duration `yaml:"timeout,omitempty"`
	GithubToken string   `yaml:"github_token,omitempty"`
}

// APIConfig configures the optional HTTP surface.
type APIConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// ProjectConfig models .signalpost/config.yaml.
type ProjectConfig struct {
	Version         int                `yaml:"version"`
	Dedup           DedupConfig        `yaml:"dedup"`
	Collaborator    CollaboratorConfig `yaml:"collaborator"`
	Extraction      ExtractionConfig   `yaml:"extraction"`
	Platforms       []PlatformConfig   `yaml:"platforms"`
	BusinessContext string             `yaml:"business_context,omitempty"`
	Style           string             `yaml:"style,omitempty"`
	API             APIConfig          `yaml:"api,omitempty"`
}

// Config holds the runtime configuration for signalpost.
type Config struct {
	// ProjectDir is the directory where the user ran `signalpost` from.
	ProjectDir string

	// SignalpostProjectDir is ProjectDir/.signalpost.
	SignalpostProjectDir string

	Project ProjectConfig
}

// InitSignalpostDir creates the .signalpost directory structure in the given
// project directory. Called by every CLI entry point before doing work.
//
// Structure created:
// .signalpost/
// ├── logs/       <- engine activity log
// ├── state/      <- dedup store and other persistent sets
// ├── instances/  <- one JSON snapshot per workflow instance
// └── plugins/    <- custom extractor definitions (yaml or Go)
func InitSignalpostDir(projectDir string) error {
	base := filepath.Join(projectDir, SignalpostDir)
	dirs := []string{
		filepath.Join(base, "logs"),
		filepath.Join(base, "state"),
		filepath.Join(base, "instances"),
		filepath.Join(base, "plugins"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(base, "config.yaml"))
}

// NewConfig creates a Config populated from .signalpost/config.yaml, falling
// back to defaults when the file does not exist yet.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:           projectDir,
		SignalpostProjectDir: filepath.Join(projectDir, SignalpostDir),
		Project:              defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.SignalpostProjectDir, "logs")
}

// StateDir returns the path to the persistent state directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.SignalpostProjectDir, "state")
}

// InstancesDir returns the directory holding workflow instance snapshots.
func (c *Config) InstancesDir() string {
	return filepath.Join(c.SignalpostProjectDir, "instances")
}

// PluginsDir returns the directory scanned for extractor definitions.
func (c *Config) PluginsDir() string {
	return filepath.Join(c.SignalpostProjectDir, "plugins")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.SignalpostProjectDir, "config.yaml")
}

// Platforms returns the configured publish targets.
func (c *Config) Platforms() []PlatformConfig {
	return c.Project.Platforms
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
		Version: 1,
		Dedup:   DedupConfig{Backend: "file"},
		Collaborator: CollaboratorConfig{
			Endpoint: "http://localhost:8089/v1/generate",
			Model:    "default",
			Timeout:  Duration(defaultCollaboratorLimit),
		},
		Extraction: ExtractionConfig{Timeout: Duration(defaultExtractTimeout)},
		Platforms: []PlatformConfig{
			{Name: "console", Kind: "log", LengthLimit: defaultLengthLimit},
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Dedup.Backend == "" {
		pc.Dedup.Backend = "file"
	}
	if pc.Collaborator.Timeout <= 0 {
		pc.Collaborator.Timeout = Duration(defaultCollaboratorLimit)
	}
	if pc.Extraction.Timeout <= 0 {
		pc.Extraction.Timeout = Duration(defaultExtractTimeout)
	}
	if len(pc.Platforms) == 0 {
		pc.Platforms = []PlatformConfig{{Name: "console", Kind: "log"}}
	}
	for i := range pc.Platforms {
		if pc.Platforms[i].LengthLimit <= 0 {
			pc.Platforms[i].LengthLimit = defaultLengthLimit
		}
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Dedup.Backend = strings.ToLower(strings.TrimSpace(pc.Dedup.Backend))
	pc.Collaborator.Endpoint = strings.TrimSpace(pc.Collaborator.Endpoint)
	pc.BusinessContext = strings.TrimSpace(pc.BusinessContext)
	for i := range pc.Platforms {
		pc.Platforms[i].Name = strings.TrimSpace(pc.Platforms[i].Name)
		pc.Platforms[i].Kind = strings.ToLower(strings.TrimSpace(pc.Platforms[i].Kind))
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	switch pc.Dedup.Backend {
	case "file", "memory":
	case "postgres":
		if strings.TrimSpace(pc.Dedup.DSN) == "" {
			return fmt.Errorf("dedup.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("dedup.backend must be 'file', 'memory', or 'postgres'")
	}
	seen := map[string]struct{}{}
	for i, platform := range pc.Platforms {
		if err := platform.validate(); err != nil {
			return fmt.Errorf("platforms[%d]: %w", i, err)
		}
		if _, dup := seen[platform.Name]; dup {
			return fmt.Errorf("platforms[%d]: duplicate platform name %s", i, platform.Name)
		}
		seen[platform.Name] = struct{}{}
	}
	return nil
}

func (p PlatformConfig) validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch p.Kind {
	case PlatformKindLog:
		return nil
	case PlatformKindWebhook:
		if strings.TrimSpace(p.WebhookURL) == "" {
			return fmt.Errorf("webhook_url is required for webhook platforms")
		}
		return nil
	default:
		return fmt.Errorf("kind must be 'log' or 'webhook'")
	}
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
