// Package config loads the sync configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tylwright/craft-docs-proxmox/alerts"
)

// Config represents the main configuration
type Config struct {
	Proxmox   ProxmoxConfig     `yaml:"proxmox"`
	Craft     CraftConfig       `yaml:"craft"`
	Alerts    alerts.Thresholds `yaml:"alerts,omitempty"`
	Sync      SyncConfig        `yaml:"sync,omitempty"`
	Log       LogConfig         `yaml:"log,omitempty"`
	Telemetry TelemetryConfig   `yaml:"telemetry,omitempty"`
}

// ProxmoxConfig holds Proxmox VE API settings
type ProxmoxConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port,omitempty"`
	TokenID     string        `yaml:"token_id"`
	TokenSecret string        `yaml:"token_secret,omitempty"` // PROXMOX_TOKEN_SECRET overrides
	VerifyTLS   bool          `yaml:"verify_tls,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// CraftConfig holds Craft Docs API settings
type CraftConfig struct {
	APIURL     string        `yaml:"api_url"`
	APIKey     string        `yaml:"api_key,omitempty"` // CRAFT_API_KEY overrides
	DocumentID string        `yaml:"document_id"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// SyncConfig controls what a sync run covers and how it presents it
type SyncConfig struct {
	GroupBy          string        `yaml:"group_by,omitempty"` // node, tag, status, none
	Node             string        `yaml:"node,omitempty"`
	Tag              string        `yaml:"tag,omitempty"`
	IncludeStopped   *bool         `yaml:"include_stopped,omitempty"`
	IncludeTemplates bool          `yaml:"include_templates,omitempty"`
	IncludeStorage   *bool         `yaml:"include_storage,omitempty"`
	IncludeBackups   *bool         `yaml:"include_backups,omitempty"`
	IncludeSnapshots *bool         `yaml:"include_snapshots,omitempty"`
	ShowAlerts       *bool         `yaml:"show_alerts,omitempty"`
	StateDir         string        `yaml:"state_dir,omitempty"`
	Interval         time.Duration `yaml:"interval,omitempty"` // watch mode
}

// LogConfig controls log output
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
}

// TelemetryConfig controls OTEL export
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled,omitempty"`
	OTELEndpoint string `yaml:"otel_endpoint,omitempty"`
	Insecure     bool   `yaml:"insecure,omitempty"`
	Environment  string `yaml:"environment,omitempty"`
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Proxmox.Port == 0 {
		c.Proxmox.Port = 8006
	}
	if c.Proxmox.Timeout == 0 {
		c.Proxmox.Timeout = 30 * time.Second
	}
	if c.Craft.Timeout == 0 {
		c.Craft.Timeout = 120 * time.Second
	}

	// Thresholds default per field, so a partial alerts section leaves the
	// unset tiers at their stock values instead of zero
	defaults := alerts.DefaultThresholds()
	if c.Alerts.CPUWarning == 0 {
		c.Alerts.CPUWarning = defaults.CPUWarning
	}
	if c.Alerts.CPUCritical == 0 {
		c.Alerts.CPUCritical = defaults.CPUCritical
	}
	if c.Alerts.MemoryWarning == 0 {
		c.Alerts.MemoryWarning = defaults.MemoryWarning
	}
	if c.Alerts.MemoryCritical == 0 {
		c.Alerts.MemoryCritical = defaults.MemoryCritical
	}
	if c.Alerts.StorageWarning == 0 {
		c.Alerts.StorageWarning = defaults.StorageWarning
	}
	if c.Alerts.StorageCritical == 0 {
		c.Alerts.StorageCritical = defaults.StorageCritical
	}
	if c.Alerts.BackupWarningDays == 0 {
		c.Alerts.BackupWarningDays = defaults.BackupWarningDays
	}
	if c.Alerts.BackupCriticalDays == 0 {
		c.Alerts.BackupCriticalDays = defaults.BackupCriticalDays
	}

	if c.Sync.GroupBy == "" {
		c.Sync.GroupBy = "node"
	}
	if c.Sync.IncludeStopped == nil {
		c.Sync.IncludeStopped = boolPtr(true)
	}
	if c.Sync.IncludeStorage == nil {
		c.Sync.IncludeStorage = boolPtr(false)
	}
	if c.Sync.IncludeBackups == nil {
		c.Sync.IncludeBackups = boolPtr(false)
	}
	if c.Sync.IncludeSnapshots == nil {
		c.Sync.IncludeSnapshots = boolPtr(true)
	}
	if c.Sync.ShowAlerts == nil {
		c.Sync.ShowAlerts = boolPtr(true)
	}
	if c.Sync.StateDir == "" {
		c.Sync.StateDir = defaultStateDir()
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 15 * time.Minute
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// applyEnv lets secrets come from the environment instead of the file
func (c *Config) applyEnv() {
	if secret := os.Getenv("PROXMOX_TOKEN_SECRET"); secret != "" {
		c.Proxmox.TokenSecret = secret
	}
	if key := os.Getenv("CRAFT_API_KEY"); key != "" {
		c.Craft.APIKey = key
	}
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Proxmox.Host == "" {
		return fmt.Errorf("proxmox.host is required")
	}
	if c.Proxmox.TokenID == "" {
		return fmt.Errorf("proxmox.token_id is required")
	}
	if c.Proxmox.TokenSecret == "" {
		return fmt.Errorf("proxmox.token_secret is required (set PROXMOX_TOKEN_SECRET)")
	}
	if c.Craft.APIURL == "" {
		return fmt.Errorf("craft.api_url is required")
	}
	if c.Craft.DocumentID == "" {
		return fmt.Errorf("craft.document_id is required")
	}

	switch c.Sync.GroupBy {
	case "node", "tag", "status", "none":
	default:
		return fmt.Errorf("sync.group_by must be one of node, tag, status, none")
	}
	return nil
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".proxsync"
	}
	return home + "/.proxsync"
}

func boolPtr(v bool) *bool { return &v }
