package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8750, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.License.ValidationInterval)
	assert.Equal(t, 72*time.Hour, cfg.License.OfflineGracePeriod)
	assert.Equal(t, 10*time.Second, cfg.License.RequestTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.License.Key, "absent key is the valid unlicensed state")
	assert.NotEmpty(t, cfg.License.CacheFile)
	assert.NotEmpty(t, cfg.License.DeviceIDFile)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VOXDESK_LICENSE_KEY", "DEMO-PRO-2026")
	t.Setenv("VOXDESK_LICENSE_ENDPOINT", "https://staging.voxdesk.app/v1/license/validate")
	t.Setenv("VOXDESK_LICENSE_VALIDATION_INTERVAL", "1h")
	t.Setenv("VOXDESK_SERVER_PORT", "9999")
	t.Setenv("VOXDESK_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "DEMO-PRO-2026", cfg.License.Key)
	assert.Equal(t, "https://staging.voxdesk.app/v1/license/validate", cfg.License.Endpoint)
	assert.Equal(t, 1*time.Hour, cfg.License.ValidationInterval)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("bad endpoint", func(t *testing.T) {
		t.Setenv("VOXDESK_LICENSE_ENDPOINT", "not-a-url")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("VOXDESK_LOGGING_LEVEL", "verbose")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestMergeFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxdesk.yml")
	require.NoError(t, os.WriteFile(path, []byte(
		"license:\n  key: FILE-KEY\n  endpoint: https://file.example.com/validate\n"), 0o600))

	fileCfg, err := loadFromFile(path)
	require.NoError(t, err)

	t.Run("file fills unset values", func(t *testing.T) {
		cfg := &Config{}
		mergeFileConfig(cfg, fileCfg)
		assert.Equal(t, "FILE-KEY", cfg.License.Key)
		assert.Equal(t, "https://file.example.com/validate", cfg.License.Endpoint)
	})

	t.Run("environment wins over file", func(t *testing.T) {
		cfg := &Config{}
		cfg.License.Key = "ENV-KEY"
		mergeFileConfig(cfg, fileCfg)
		assert.Equal(t, "ENV-KEY", cfg.License.Key)
		assert.Equal(t, "https://file.example.com/validate", cfg.License.Endpoint)
	})
}

func TestPathsFrom(t *testing.T) {
	base := t.TempDir()
	paths := PathsFrom(base)

	assert.Equal(t, base, paths.ExecutableDir)
	assert.Equal(t, filepath.Join(base, "data", "license_cache.json"), paths.LicenseCacheFile)
	assert.Equal(t, filepath.Join(base, "data", "device_id"), paths.DeviceIDFile)
	assert.Equal(t, filepath.Join(base, "voxdesk.yml"), paths.ConfigFile)

	require.NoError(t, paths.EnsureDirs())
	for _, dir := range []string{paths.DataDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
