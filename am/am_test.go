package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/activecm/genhash/errors"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	return cfg
}

// isolate points HOME and the working directory at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	t.Setenv("HOME", dir)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, "fnv64a", cfg.Genhash.Algorithm)
	assert.Equal(t, 5, cfg.Genhash.DefaultSchemaVersion)
	assert.False(t, cfg.Genhash.Rehash)
	assert.Equal(t, "unique", cfg.Verify.Policy)
	assert.Equal(t, 500*time.Millisecond, cfg.Verify.WatchDebounce())
	assert.Equal(t, "genhash.db", cfg.Database.Path)
	assert.Equal(t, 300*time.Second, cfg.Sync.Wait())
	assert.Equal(t, 30*time.Second, cfg.Sync.Timeout())
	assert.Equal(t, 2.0, cfg.Sync.RequestsPerSecond)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Empty(t, cfg.Sync.Sources)
	assert.False(t, cfg.Log.JSON)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".cache", "safelist-sync"), cfg.Sync.CacheDir)

	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"xxh64 is valid", func(c *Config) { c.Genhash.Algorithm = "xxh64" }, ""},
		{"unknown algorithm", func(c *Config) { c.Genhash.Algorithm = "md5" }, "genhash.algorithm"},
		{"zero schema version leaves entries alone", func(c *Config) { c.Genhash.DefaultSchemaVersion = 0 }, ""},
		{"negative schema version", func(c *Config) { c.Genhash.DefaultSchemaVersion = -1 }, "default_schema_version"},
		{"first policy", func(c *Config) { c.Verify.Policy = "first" }, ""},
		{"unknown policy", func(c *Config) { c.Verify.Policy = "any" }, "verify.policy"},
		{"negative debounce", func(c *Config) { c.Verify.WatchDebounceMS = -1 }, "watch_debounce_ms"},
		{"zero rate is unlimited", func(c *Config) { c.Sync.RequestsPerSecond = 0 }, ""},
		{"negative rate", func(c *Config) { c.Sync.RequestsPerSecond = -1 }, "requests_per_second"},
		{"zero timeout", func(c *Config) { c.Sync.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"zero concurrency", func(c *Config) { c.Sync.Concurrency = 0 }, "concurrency"},
		{"negative wait", func(c *Config) { c.Sync.WaitSeconds = -5 }, "wait_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSync(t *testing.T) {
	base := defaultConfig(t).Sync

	s := base
	err := s.ValidateSync()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.sources is empty")
	assert.NotEmpty(t, errors.GetAllHints(err))

	s.Sources = []string{"hunter1"}
	assert.Error(t, s.ValidateSync(), "one host cannot sync with itself")

	s.Recipients = []string{"hunter2"}
	assert.NoError(t, s.ValidateSync())

	s.Sources = []string{"hunter1", "hunter3"}
	s.Recipients = nil
	assert.NoError(t, s.ValidateSync())

	s.Recipients = []string{" "}
	assert.Error(t, s.ValidateSync())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genhash.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[genhash]
algorithm = "xxh64"

[sync]
sources = ["hunter1", "hunter2"]
filter = "soc"
cache_dir = "/var/cache/safelist"
`), DefaultFilePermissions))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "xxh64", cfg.Genhash.Algorithm)
	assert.Equal(t, []string{"hunter1", "hunter2"}, cfg.Sync.Sources)
	assert.Equal(t, "soc", cfg.Sync.Filter)
	assert.Equal(t, "/var/cache/safelist", cfg.Sync.CacheDir)
	assert.Equal(t, "unique", cfg.Verify.Policy, "defaults fill unset keys")

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".genhash"), DefaultDirPermissions))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".genhash", "am.toml"), []byte(`
[database]
path = "user.db"

[verify]
policy = "first"
`), DefaultFilePermissions))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(`
[database]
path = "project.db"
`), DefaultFilePermissions))

	t.Setenv("GENHASH_GENHASH_ALGORITHM", "xxh64")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "project.db", cfg.Database.Path, "project file wins over user file")
	assert.Equal(t, "first", cfg.Verify.Policy, "user file wins over defaults")
	assert.Equal(t, "xxh64", cfg.Genhash.Algorithm, "env wins over everything")

	assert.Equal(t, SourceProject, ConfigSources["database.path"].Source)
	assert.Equal(t, SourceUser, ConfigSources["verify.policy"].Source)
}

func TestLoad_EnvBeatsProjectFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(`
[database]
path = "project.db"
`), DefaultFilePermissions))
	t.Setenv("GENHASH_DATABASE_PATH", "env.db")

	path, err := GetDatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "env.db", path)
}

func TestFindProjectConfig(t *testing.T) {
	dir := isolate(t)

	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, DefaultDirPermissions))
	require.NoError(t, os.Chdir(sub))
	assert.Empty(t, findProjectConfig())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", ProjectConfigName), nil, DefaultFilePermissions))
	found := findProjectConfig()
	assert.True(t, filepath.IsAbs(found))
	assert.Equal(t, filepath.Join("a", ProjectConfigName), filepath.Join(filepath.Base(filepath.Dir(found)), filepath.Base(found)))
}

func TestGetConfigIntrospection(t *testing.T) {
	isolate(t)
	t.Setenv("GENHASH_VERIFY_POLICY", "first")

	settings, err := GetConfigIntrospection()
	require.NoError(t, err)

	byKey := map[string]SettingInfo{}
	for _, s := range settings {
		byKey[s.Key] = s
	}

	require.Contains(t, byKey, "genhash.algorithm")
	assert.Equal(t, SourceDefault, byKey["genhash.algorithm"].Source)
	assert.Equal(t, SourceEnvironment, byKey["verify.policy"].Source)
	assert.Equal(t, "GENHASH_VERIFY_POLICY", byKey["verify.policy"].SourcePath)

	for i := 1; i < len(settings); i++ {
		assert.Less(t, settings[i-1].Key, settings[i].Key)
	}
}

func TestSetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "am.toml")

	require.NoError(t, SetValue(path, "verify.policy", "first"))
	require.NoError(t, SetValue(path, "sync.sources", "hunter1, hunter2"))
	require.NoError(t, SetValue(path, "sync.wait_seconds", "60"))
	require.NoError(t, SetValue(path, "sync.dry_run", "true"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]interface{}
	require.NoError(t, toml.Unmarshal(data, &raw))
	assert.Equal(t, "first", raw["verify"].(map[string]interface{})["policy"])

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", cfg.Verify.Policy)
	assert.Equal(t, []string{"hunter1", "hunter2"}, cfg.Sync.Sources)
	assert.Equal(t, 60, cfg.Sync.WaitSeconds)
	assert.True(t, cfg.Sync.DryRun)

	_, err = os.Stat(path + ".back1")
	assert.NoError(t, err, "previous file is backed up")

	err = SetValue(path, "verify.nope", "x")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	err = SetValue(path, "sync.wait_seconds", "soon")
	assert.Error(t, err)
}
