package am

import (
	"github.com/spf13/viper"
)

// Defaults
const (
	DefaultAlgorithm       = "fnv64a"
	DefaultSchemaVersion   = 5
	DefaultPolicy          = "unique"
	DefaultDatabasePath    = "genhash.db"
	DefaultSyncWaitSeconds = 300
	DefaultSyncCacheDir    = "~/.cache/safelist-sync"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("genhash.algorithm", DefaultAlgorithm)
	v.SetDefault("genhash.default_schema_version", DefaultSchemaVersion)
	v.SetDefault("genhash.rehash", false)

	v.SetDefault("verify.policy", DefaultPolicy)
	v.SetDefault("verify.watch_debounce_ms", 500)

	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("sync.sources", []string{})
	v.SetDefault("sync.recipients", []string{})
	v.SetDefault("sync.filter", "")
	v.SetDefault("sync.wait_seconds", DefaultSyncWaitSeconds)
	v.SetDefault("sync.dry_run", false)
	v.SetDefault("sync.cache_dir", DefaultSyncCacheDir)
	v.SetDefault("sync.timeout_seconds", 30)
	v.SetDefault("sync.requests_per_second", 2.0)
	v.SetDefault("sync.concurrency", 4)
	v.SetDefault("sync.allow_private_hosts", true)

	v.SetDefault("log.json", false)
}

func newDefaultsViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

// BindEnvVars binds keys whose environment names do not follow from
// AutomaticEnv, or that must be visible to AllSettings without a file.
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "GENHASH_DATABASE_PATH", "GENHASH_DB")
	v.BindEnv("sync.sources", "GENHASH_SYNC_SOURCES")
	v.BindEnv("sync.recipients", "GENHASH_SYNC_RECIPIENTS")
	v.BindEnv("log.json", "GENHASH_LOG_JSON")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}
