package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no stray config or .env
// file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, StoreFile, cfg.Session.Store)
	assert.Equal(t, filepath.Join(dir, ".scrapdai", "session.json"), cfg.Session.FilePath)
	assert.Equal(t, 15*time.Second, cfg.Session.RefreshTimeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "none", cfg.Catalog.Cache)
	assert.Equal(t, 10*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, 1.0, cfg.Geo.RequestsPerSecond)
	assert.Equal(t, 5*time.Second, cfg.Geo.PollInterval)
	assert.Equal(t, 1600, cfg.Media.MaxDimension)
	assert.Equal(t, 80, cfg.Media.JPEGQuality)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SCRAPDAI_API_BASE_URL", "https://api.example.com")
	t.Setenv("SCRAPDAI_SESSION_STORE", "redis")
	t.Setenv("SCRAPDAI_REDIS_PORT", "6380")
	t.Setenv("SCRAPDAI_CATALOG_CACHE_TTL", "1h")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, StoreRedis, cfg.Session.Store)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, time.Hour, cfg.Catalog.CacheTTL)
}

func TestLoad_ConfigFileAndDotenv(t *testing.T) {
	dir := isolate(t)

	yaml := []byte("api:\n  base_url: https://file.example.com\n  timeout: 5s\nmedia:\n  jpeg_quality: 60\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	env := []byte("SCRAPDAI_SESSION_PASSPHRASE=from-dotenv\nSCRAPDAI_API_TIMEOUT=7s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), env, 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SCRAPDAI_SESSION_PASSPHRASE")
		os.Unsetenv("SCRAPDAI_API_TIMEOUT")
	})

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", cfg.API.BaseURL)
	assert.Equal(t, 7*time.Second, cfg.API.Timeout, "environment beats the config file")
	assert.Equal(t, 60, cfg.Media.JPEGQuality)
	assert.Equal(t, "from-dotenv", cfg.Session.Passphrase)
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  store: memory\n"), 0o600))

	cfg, err := Load(LoadOptions{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Session.Store)

	_, err = Load(LoadOptions{ConfigFile: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			API:     APIConfig{BaseURL: "http://x"},
			Session: SessionConfig{Store: StoreFile, FilePath: "/tmp/s.json"},
			Catalog: CatalogConfig{Cache: "none"},
			Media:   MediaConfig{JPEGQuality: 80},
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.API.BaseURL = ""
	assert.Error(t, c.Validate())

	c = base()
	c.Session.Store = "keychain"
	assert.Error(t, c.Validate())

	c = base()
	c.Session.FilePath = ""
	assert.Error(t, c.Validate())

	c = base()
	c.Catalog.Cache = "memcached"
	assert.Error(t, c.Validate())

	c = base()
	c.Media.JPEGQuality = 101
	assert.Error(t, c.Validate())
}
