package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gistmirror/gistmirror/internal/snippet"
)

// Target platform identifiers.
const (
	ProviderGitLab    = "gitlab"
	ProviderGitea     = "gitea"
	ProviderCodeberg  = "codeberg"
	ProviderForgejo   = "forgejo"
	ProviderBitbucket = "bitbucket"
	ProviderKeybase   = "keybase"
)

// OnConflict is the per-target policy applied when an object with the
// derived identifier already exists at the target.
type OnConflict string

const (
	ConflictSkip    OnConflict = "skip"
	ConflictUpdate  OnConflict = "update"
	ConflictReplace OnConflict = "replace"
)

// SourceTokenVar overrides the configured source token when set.
const SourceTokenVar = "GISTMIRROR_SOURCE_TOKEN"

// Config is the top-level configuration.
type Config struct {
	Source  SourceConfig   `yaml:"source"`
	Targets []TargetConfig `yaml:"targets"`
	Sync    SyncConfig     `yaml:"sync"`
	Hooks   HooksConfig    `yaml:"hooks"`
	History HistoryConfig  `yaml:"history"`
}

// SourceConfig identifies the account whose gists are mirrored.
type SourceConfig struct {
	Provider string       `yaml:"provider"`
	Username string       `yaml:"username"`
	Token    string       `yaml:"token"`
	BaseURL  string       `yaml:"base_url"`
	Filters  FilterConfig `yaml:"filters"`
}

// FilterConfig selects which source gists participate in a run. When
// IDs is non-empty it is used exclusively and every other filter is
// bypassed.
type FilterConfig struct {
	Visibility string   `yaml:"visibility"` // "", "all", "public", "private"
	Since      string   `yaml:"since"`      // ISO-8601, inclusive
	Include    string   `yaml:"include"`    // case-insensitive regex over description
	Exclude    string   `yaml:"exclude"`
	IDs        []string `yaml:"ids"`
}

// TargetConfig is one configured destination.
type TargetConfig struct {
	Name                string                 `yaml:"name"`
	Provider            string                 `yaml:"provider"`
	Enabled             bool                   `yaml:"enabled"`
	Token               string                 `yaml:"token"`
	BaseURL             string                 `yaml:"base_url"`
	Username            string                 `yaml:"username"`
	Workspace           string                 `yaml:"workspace"`
	Team                string                 `yaml:"team"`
	OnConflict          OnConflict             `yaml:"on_conflict"`
	PreserveDescription bool                   `yaml:"preserve_description"`
	DescriptionPrefix   string                 `yaml:"description_prefix"`
	DescriptionSuffix   string                 `yaml:"description_suffix"`
	Visibility          snippet.VisibilityMode `yaml:"visibility"`
}

// NormalizeOptions returns the formatting policy this target applies
// to every source item.
func (t TargetConfig) NormalizeOptions() snippet.NormalizeOptions {
	return snippet.NormalizeOptions{
		DescriptionPrefix:   t.DescriptionPrefix,
		DescriptionSuffix:   t.DescriptionSuffix,
		PreserveDescription: t.PreserveDescription,
		VisibilityMode:      t.Visibility,
	}
}

// SyncConfig holds engine pacing settings. Durations are Go duration
// strings; invalid or empty values fall back to the defaults.
type SyncConfig struct {
	RateLimit string `yaml:"rate_limit"`
	Timeout   string `yaml:"timeout"`
	PageSize  int    `yaml:"page_size"`
}

// RateLimitInterval is the minimum delay between consecutive requests
// to the same platform.
func (s SyncConfig) RateLimitInterval() time.Duration {
	if d, err := time.ParseDuration(s.RateLimit); err == nil && d >= 0 {
		return d
	}
	return time.Second
}

// RequestTimeout bounds every network call.
func (s SyncConfig) RequestTimeout() time.Duration {
	if d, err := time.ParseDuration(s.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// EffectivePageSize is the source listing page size.
func (s SyncConfig) EffectivePageSize() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return 100
}

// HooksConfig holds the lifecycle hook commands. Empty commands are
// skipped.
type HooksConfig struct {
	PreSync  string `yaml:"pre_sync"`
	PostSync string `yaml:"post_sync"`
	OnError  string `yaml:"on_error"`
}

// HistoryConfig controls the local run-history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Provider: "github",
		},
		Sync: SyncConfig{
			RateLimit: "1s",
			Timeout:   "30s",
			PageSize:  100,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Load reads a config file from the given path and applies environment
// token overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations.
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"gistmirror.yaml",
		"/etc/gistmirror/gistmirror.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "gistmirror", "gistmirror.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// TargetTokenVar returns the environment variable consulted for a
// target's token override: the target name uppercased with '-'
// replaced by '_', plus a _TOKEN suffix.
func TargetTokenVar(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_TOKEN"
}

// ApplyEnvOverrides replaces configured tokens with per-target and
// source-wide environment overrides where present.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(SourceTokenVar); v != "" {
		c.Source.Token = v
	}
	for i := range c.Targets {
		if v := os.Getenv(TargetTokenVar(c.Targets[i].Name)); v != "" {
			c.Targets[i].Token = v
		}
	}
}

// EnabledTargets returns the enabled targets in configuration order.
func (c *Config) EnabledTargets() []TargetConfig {
	var out []TargetConfig
	for _, t := range c.Targets {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}

// validProviders is the set of supported target platforms.
var validProviders = map[string]bool{
	ProviderGitLab:    true,
	ProviderGitea:     true,
	ProviderCodeberg:  true,
	ProviderForgejo:   true,
	ProviderBitbucket: true,
	ProviderKeybase:   true,
}

// Validate checks the configuration before any network call is made.
// ApplyEnvOverrides runs at load time, so env-supplied tokens count.
func (c *Config) Validate() error {
	if c.Source.Provider == "" {
		return fmt.Errorf("source: provider is required")
	}
	if c.Source.Username == "" {
		return fmt.Errorf("source: username is required")
	}

	seen := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("target: name is required")
		}
		if seen[t.Name] {
			return fmt.Errorf("target %q: duplicate name", t.Name)
		}
		seen[t.Name] = true

		if !t.Enabled {
			continue
		}
		if !validProviders[t.Provider] {
			return fmt.Errorf("target %q: unknown provider %q", t.Name, t.Provider)
		}
		// Keybase authenticates via the logged-in local session.
		if t.Token == "" && t.Provider != ProviderKeybase {
			return fmt.Errorf("target %q: token is required (set it in config or %s)", t.Name, TargetTokenVar(t.Name))
		}
		switch t.Provider {
		case ProviderBitbucket:
			if t.Workspace == "" {
				return fmt.Errorf("target %q: workspace is required for bitbucket", t.Name)
			}
		case ProviderGitea, ProviderCodeberg, ProviderForgejo:
			if t.Username == "" {
				return fmt.Errorf("target %q: username is required for %s", t.Name, t.Provider)
			}
		}
		switch t.OnConflict {
		case "", ConflictSkip, ConflictUpdate, ConflictReplace:
		default:
			return fmt.Errorf("target %q: unknown on_conflict policy %q", t.Name, t.OnConflict)
		}
	}

	return nil
}
