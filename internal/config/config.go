// internal/config/config.go
//
// This package handles configuration and the .contractwizard directory.
// Every working directory that runs the wizard gets a .contractwizard/ folder
// holding its config, logs, local drafts and archived documents.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// WizardDir is the name of the directory we create in each working directory
	WizardDir = ".contractwizard"

	defaultBaseURL          = "http://localhost:8000/api"
	defaultTimeout          = 30 * time.Second
	defaultAutosaveInterval = 2 * time.Second
	defaultBridgeHost       = "127.0.0.1"
	defaultBridgePort       = 8766
	defaultArchiveBucket    = "signed-contracts"
	defaultLogLevel         = "info"
)

// ErrNotConfigured is returned when a feature is used without the settings it needs.
var ErrNotConfigured = errors.New("config: not configured")

const defaultProjectConfigYAML = `# contract wizard configuration
version: 1

# Backend API. The token can also come from CONTRACTWIZARD_TOKEN.
api:
  base_url: http://localhost:8000/api
  timeout: 30s

# Local draft auto-save (debounced after every change).
autosave:
  enabled: true
  interval: 2s

# Loopback webhook receiver for contract status notifications.
bridge:
  enabled: false
  host: 127.0.0.1
  port: 8766

# Archive signed PDFs to an S3-compatible bucket.
archive:
  enabled: false
  endpoint: localhost:9000
  bucket: signed-contracts
  use_ssl: false

logging:
  level: info
`

// APIConfig points the gateway at the backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

// AutosaveConfig controls local draft persistence.
type AutosaveConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Interval string `yaml:"interval,omitempty"`
}

// BridgeConfig controls the notification webhook receiver.
type BridgeConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// ArchiveConfig configures the signed-PDF archive bucket.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LoggingConfig selects the diagnostic log level.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// ProjectConfig models .contractwizard/config.yaml.
type ProjectConfig struct {
	Version  int            `yaml:"version"`
	API      APIConfig      `yaml:"api"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Config holds the runtime configuration.
type Config struct {
	// ProjectDir is the directory the wizard was started from
	ProjectDir string

	// WizardProjectDir is ProjectDir/.contractwizard
	WizardProjectDir string

	// Project is the effective configuration: config.yaml plus
	// CONTRACTWIZARD_* overrides. Callers may adjust it for the current run.
	Project ProjectConfig

	// file is config.yaml as loaded; only this copy is ever written back.
	file ProjectConfig
}

// InitProjectDir creates the .contractwizard directory structure.
//
// Structure created:
// .contractwizard/
// ├── config.yaml
// ├── logs/      <- diagnostic log + journey log
// ├── state/     <- local drafts database
// └── archive/   <- downloaded signed PDFs
func InitProjectDir(projectDir string) error {
	root := filepath.Join(projectDir, WizardDir)
	dirs := []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "state"),
		filepath.Join(root, "archive"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig creates a Config populated from config.yaml and the environment.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:       projectDir,
		WizardProjectDir: filepath.Join(projectDir, WizardDir),
		file:             defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve rebuilds the effective configuration from the file copy.
func (c *Config) resolve() error {
	effective := c.file
	effective.applyEnvOverrides()
	effective.normalize()
	if err := effective.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Project = effective
	return nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.WizardProjectDir, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.WizardProjectDir, "state")
}

// DraftsPath returns the path to the local drafts database
func (c *Config) DraftsPath() string {
	return filepath.Join(c.StateDir(), "drafts.db")
}

// ArchiveDir returns the local directory for downloaded signed PDFs
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.WizardProjectDir, "archive")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.WizardProjectDir, "config.yaml")
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.Project.API.BaseURL, "/")
}

// Token returns the bearer token used for backend calls.
func (c *Config) Token() string {
	return c.Project.API.Token
}

// Timeout returns the HTTP timeout for backend calls.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.Project.API.Timeout, defaultTimeout)
}

// AutosaveEnabled reports whether drafts are saved automatically.
func (c *Config) AutosaveEnabled() bool {
	return c.Project.Autosave.Enabled == nil || *c.Project.Autosave.Enabled
}

// AutosaveInterval returns the debounce delay before a draft is saved.
func (c *Config) AutosaveInterval() time.Duration {
	return parseDuration(c.Project.Autosave.Interval, defaultAutosaveInterval)
}

// SetToken stores a bearer token and persists it to config.yaml.
func (c *Config) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("config: token is required")
	}
	return c.saveProjectConfig([]string{"api", "token"}, token, func(pc *ProjectConfig) {
		pc.API.Token = token
	})
}

// SetBaseURL updates the backend base URL and persists it to config.yaml.
func (c *Config) SetBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if _, err := parseBaseURL(raw); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return c.saveProjectConfig([]string{"api", "base_url"}, raw, func(pc *ProjectConfig) {
		pc.API.BaseURL = raw
	})
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

	c.file = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.API.BaseURL) == "" {
		pc.API.BaseURL = defaultBaseURL
	}
	if pc.Bridge.Host == "" {
		pc.Bridge.Host = defaultBridgeHost
	}
	if pc.Bridge.Port == 0 {
		pc.Bridge.Port = defaultBridgePort
	}
	if pc.Archive.Bucket == "" {
		pc.Archive.Bucket = defaultArchiveBucket
	}
	if pc.Logging.Level == "" {
		pc.Logging.Level = defaultLogLevel
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	if value := strings.TrimSpace(os.Getenv("CONTRACTWIZARD_API_URL")); value != "" {
		pc.API.BaseURL = value
	}
	if value := strings.TrimSpace(os.Getenv("CONTRACTWIZARD_TOKEN")); value != "" {
		pc.API.Token = value
	}
	if value := strings.TrimSpace(os.Getenv("CONTRACTWIZARD_BRIDGE_ENABLED")); value != "" {
		if enabled, err := strconv.ParseBool(value); err == nil {
			pc.Bridge.Enabled = &enabled
		}
	}
	if value := strings.TrimSpace(os.Getenv("CONTRACTWIZARD_BRIDGE_HOST")); value != "" {
		pc.Bridge.Host = value
	}
	if value := strings.TrimSpace(os.Getenv("CONTRACTWIZARD_BRIDGE_PORT")); value != "" {
		if port, err := strconv.Atoi(value); err == nil {
			pc.Bridge.Port = port
		}
	}
	if value := strings.TrimSpace(os.Getenv("CONTRACTWIZARD_LOG_LEVEL")); value != "" {
		pc.Logging.Level = value
	}
}

func (pc *ProjectConfig) normalize() {
	pc.API.BaseURL = strings.TrimRight(strings.TrimSpace(pc.API.BaseURL), "/")
	pc.API.Token = strings.TrimSpace(pc.API.Token)
	pc.API.Timeout = strings.TrimSpace(pc.API.Timeout)
	pc.Autosave.Interval = strings.TrimSpace(pc.Autosave.Interval)
	pc.Bridge.Host = strings.TrimSpace(pc.Bridge.Host)
	pc.Archive.Endpoint = strings.TrimSpace(pc.Archive.Endpoint)
	pc.Archive.Bucket = strings.TrimSpace(pc.Archive.Bucket)
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if _, err := parseBaseURL(pc.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if pc.API.Timeout != "" {
		if d, err := time.ParseDuration(pc.API.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("api.timeout must be a positive duration")
		}
	}
	if pc.Autosave.Interval != "" {
		if d, err := time.ParseDuration(pc.Autosave.Interval); err != nil || d <= 0 {
			return fmt.Errorf("autosave.interval must be a positive duration")
		}
	}
	if pc.Bridge.Port < 0 || pc.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port must be between 0 and 65535")
	}
	if pc.Archive.Enabled {
		if pc.Archive.Endpoint == "" {
			return fmt.Errorf("archive.endpoint is required when the archive is enabled")
		}
		if pc.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when the archive is enabled")
		}
	}
	switch pc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	return u, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o600)
}

// saveProjectConfig applies one change to the file copy and writes just that
// key into config.yaml. Env overrides and per-run tweaks to Project never
// reach the disk, and the comments in the file are kept.
func (c *Config) saveProjectConfig(path []string, value string, change func(*ProjectConfig)) error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	file := c.file
	change(&file)
	file.applyDefaults()
	file.normalize()
	if err := file.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.WizardProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure wizard dir: %w", err)
	}
	doc, err := c.readDocument()
	if err != nil {
		return err
	}
	if err := setScalar(doc, path, value); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	// The file may hold a bearer token.
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	c.file = file
	return c.resolve()
}

// readDocument parses config.yaml as a node tree, falling back to the
// commented default when the file is missing or empty.
func (c *Config) readDocument() (*yaml.Node, error) {
	data, err := os.ReadFile(c.ProjectConfigPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read %s: %w", c.ProjectConfigPath(), err)
	}
	if strings.TrimSpace(string(data)) == "" {
		data = []byte(defaultProjectConfigYAML)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", c.ProjectConfigPath(), err)
	}
	return &doc, nil
}

// setScalar sets the string at path, creating intermediate mappings.
func setScalar(doc *yaml.Node, path []string, value string) error {
	node := doc
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			node.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
		}
		node = node.Content[0]
	}
	for i, key := range path {
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("config: %s is not a mapping", strings.Join(path[:i], "."))
		}
		var child *yaml.Node
		for j := 0; j+1 < len(node.Content); j += 2 {
			if node.Content[j].Value == key {
				child = node.Content[j+1]
				break
			}
		}
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, child)
		}
		if i < len(path)-1 && child.Kind == yaml.ScalarNode && child.Tag == "!!null" {
			child.Kind, child.Tag, child.Value = yaml.MappingNode, "!!map", ""
		}
		node = child
	}
	node.Kind = yaml.ScalarNode
	node.Tag = "!!str"
	node.Style = 0
	node.Content = nil
	node.Value = value
	return nil
}
