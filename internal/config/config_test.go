package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONTRACTWIZARD_API_URL",
		"CONTRACTWIZARD_TOKEN",
		"CONTRACTWIZARD_BRIDGE_ENABLED",
		"CONTRACTWIZARD_BRIDGE_HOST",
		"CONTRACTWIZARD_BRIDGE_PORT",
		"CONTRACTWIZARD_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	dir := filepath.Join(projectDir, WizardDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(strings.TrimSpace(body)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Project.Version)
	}
	if cfg.BaseURL() != defaultBaseURL {
		t.Fatalf("expected default base url, got %s", cfg.BaseURL())
	}
	if cfg.Timeout() != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.Timeout())
	}
	if !cfg.AutosaveEnabled() || cfg.AutosaveInterval() != 2*time.Second {
		t.Fatalf("unexpected autosave defaults: %v %s", cfg.AutosaveEnabled(), cfg.AutosaveInterval())
	}
}

func TestInitProjectDirWritesDefaultConfig(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	if err := InitProjectDir(projectDir); err != nil {
		t.Fatalf("InitProjectDir: %v", err)
	}
	for _, sub := range []string{"logs", "state", "archive", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(projectDir, WizardDir, sub)); err != nil {
			t.Fatalf("expected %s to exist: %v", sub, err)
		}
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("default config did not load: %v", err)
	}
	if cfg.Project.Archive.Bucket != "signed-contracts" {
		t.Fatalf("unexpected bucket %q", cfg.Project.Archive.Bucket)
	}
	// A second init must not clobber edits.
	writeConfig(t, projectDir, "version: 1\napi:\n  base_url: https://api.example.com/\n")
	if err := InitProjectDir(projectDir); err != nil {
		t.Fatal(err)
	}
	cfg, err = NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL() != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.BaseURL())
	}
}

func TestNewConfigParsesYaml(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
version: 1
api:
  base_url: https://contracts.example.com/api
  token: abc
  timeout: 5s
autosave:
  enabled: false
  interval: 500ms
bridge:
  enabled: true
  port: 9100
logging:
  level: DEBUG
`)
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Token() != "abc" || cfg.Timeout() != 5*time.Second {
		t.Fatalf("api section not parsed: %+v", cfg.Project.API)
	}
	if cfg.AutosaveEnabled() || cfg.AutosaveInterval() != 500*time.Millisecond {
		t.Fatalf("autosave section not parsed: %+v", cfg.Project.Autosave)
	}
	if cfg.Project.Bridge.Port != 9100 || cfg.Project.Bridge.Host != "127.0.0.1" {
		t.Fatalf("bridge section not parsed: %+v", cfg.Project.Bridge)
	}
	if cfg.Project.Logging.Level != "debug" {
		t.Fatalf("log level not normalised: %s", cfg.Project.Logging.Level)
	}
}

func TestNewConfigValidation(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"bad scheme":   "version: 1\napi:\n  base_url: ftp://example.com\n",
		"bad timeout":  "version: 1\napi:\n  timeout: soon\n",
		"bad level":    "version: 1\nlogging:\n  level: loud\n",
		"archive":      "version: 1\narchive:\n  enabled: true\n  endpoint: \"\"\n",
		"bridge range": "version: 1\nbridge:\n  port: 70000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			projectDir := t.TempDir()
			writeConfig(t, projectDir, body)
			if _, err := NewConfig(projectDir); err == nil {
				t.Fatalf("expected validation error but got none")
			}
		})
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	writeConfig(t, projectDir, "version: 1\napi:\n  base_url: https://file.example.com\n  token: from-file\n")
	t.Setenv("CONTRACTWIZARD_API_URL", "https://env.example.com")
	t.Setenv("CONTRACTWIZARD_TOKEN", "from-env")
	t.Setenv("CONTRACTWIZARD_BRIDGE_ENABLED", "true")
	t.Setenv("CONTRACTWIZARD_BRIDGE_PORT", "9200")
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL() != "https://env.example.com" || cfg.Token() != "from-env" {
		t.Fatalf("env overrides ignored: %+v", cfg.Project.API)
	}
	if cfg.Project.Bridge.Enabled == nil || !*cfg.Project.Bridge.Enabled || cfg.Project.Bridge.Port != 9200 {
		t.Fatalf("bridge env overrides ignored: %+v", cfg.Project.Bridge)
	}
}

func TestSetTokenPersists(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	if err := InitProjectDir(projectDir); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetToken("  "); err == nil {
		t.Fatalf("blank token should be rejected")
	}
	if err := cfg.SetToken("secret"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := cfg.SetBaseURL("not a url"); err == nil {
		t.Fatalf("invalid base url should be rejected")
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Token() != "secret" {
		t.Fatalf("token not persisted, got %q", reloaded.Token())
	}
	info, err := os.Stat(reloaded.ProjectConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config should be private, got %v", info.Mode().Perm())
	}
}

func TestSaveKeepsEnvOverridesOffDisk(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	if err := InitProjectDir(projectDir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONTRACTWIZARD_TOKEN", "env-only-secret")
	t.Setenv("CONTRACTWIZARD_LOG_LEVEL", "debug")
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Project.Bridge.Port = 9999
	if err := cfg.SetBaseURL("https://contracts.example.com/api"); err != nil {
		t.Fatalf("SetBaseURL: %v", err)
	}
	if cfg.BaseURL() != "https://contracts.example.com/api" || cfg.Token() != "env-only-secret" {
		t.Fatalf("effective config not refreshed: %+v", cfg.Project.API)
	}

	data, err := os.ReadFile(cfg.ProjectConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	for _, leaked := range []string{"env-only-secret", "debug", "9999"} {
		if strings.Contains(body, leaked) {
			t.Fatalf("config.yaml picked up %q:\n%s", leaked, body)
		}
	}
	if !strings.Contains(body, "https://contracts.example.com/api") {
		t.Fatalf("base url not written:\n%s", body)
	}
	if !strings.Contains(body, "# Backend API.") {
		t.Fatalf("comments were dropped:\n%s", body)
	}

	clearEnv(t)
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Token() != "" || reloaded.Project.Logging.Level != "info" {
		t.Fatalf("env values persisted: token=%q level=%q", reloaded.Token(), reloaded.Project.Logging.Level)
	}
}

func TestSetTokenAddsMissingSection(t *testing.T) {
	clearEnv(t)
	projectDir := t.TempDir()
	writeConfig(t, projectDir, "version: 1\nlogging:\n  level: warn\n")
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetToken("secret"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Token() != "secret" || reloaded.Project.Logging.Level != "warn" {
		t.Fatalf("unexpected reload: token=%q level=%q", reloaded.Token(), reloaded.Project.Logging.Level)
	}
}
