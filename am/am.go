// Package am loads genhash configuration from defaults, TOML files and
// GENHASH_* environment variables.
package am

import (
	"fmt"
	"time"
)

// Config represents the genhash configuration
type Config struct {
	Genhash  GenhashConfig  `mapstructure:"genhash"`
	Verify   VerifyConfig   `mapstructure:"verify"`
	Database DatabaseConfig `mapstructure:"database"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Log      LogConfig      `mapstructure:"log"`
}

// GenhashConfig configures hash generation
type GenhashConfig struct {
	Algorithm            string `mapstructure:"algorithm"`              // fnv64a (reference) or xxh64
	DefaultSchemaVersion int    `mapstructure:"default_schema_version"` // 0 leaves schema_version untouched
	Rehash               bool   `mapstructure:"rehash"`                 // recompute entries that already carry a hash_key
}

// VerifyConfig configures the equivalence verifier
type VerifyConfig struct {
	Policy          string `mapstructure:"policy"`            // unique or first
	WatchDebounceMS int    `mapstructure:"watch_debounce_ms"` // --watch quiet period
}

// DatabaseConfig configures the snapshot database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig configures safelist sync between hosts
type SyncConfig struct {
	Sources           []string `mapstructure:"sources"`             // hosts whose safelists are merged
	Recipients        []string `mapstructure:"recipients"`          // hosts that only receive entries
	Filter            string   `mapstructure:"filter"`              // comment substring; empty syncs everything
	WaitSeconds       int      `mapstructure:"wait_seconds"`        // pause between passes
	DryRun            bool     `mapstructure:"dry_run"`             // fetch and diff only
	CacheDir          string   `mapstructure:"cache_dir"`           // raw host lists are cached here
	TimeoutSeconds    int      `mapstructure:"timeout_seconds"`     // per request
	RequestsPerSecond float64  `mapstructure:"requests_per_second"` // per host; 0 disables limiting
	Concurrency       int      `mapstructure:"concurrency"`         // parallel host fetches
	AllowPrivateHosts bool     `mapstructure:"allow_private_hosts"` // hosts are usually on the local network
}

// LogConfig configures log output
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// Wait returns the pause between sync passes.
func (s SyncConfig) Wait() time.Duration {
	return time.Duration(s.WaitSeconds) * time.Second
}

// Timeout returns the per-request timeout.
func (s SyncConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// WatchDebounce returns the --watch quiet period.
func (v VerifyConfig) WatchDebounce() time.Duration {
	return time.Duration(v.WatchDebounceMS) * time.Millisecond
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Genhash: {Algorithm: %s}, Verify: {Policy: %s}, Database: %s, Sync: {Sources: %d, Recipients: %d}}",
		c.Genhash.Algorithm, c.Verify.Policy, c.Database.Path, len(c.Sync.Sources), len(c.Sync.Recipients))
}
