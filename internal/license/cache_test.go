package license

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "license_cache.json")

	validated := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	successful := validated.Add(-2 * time.Hour)
	cache := ValidationCache{
		LastValidated:            &validated,
		LastSuccessfulValidation: &successful,
		ValidationResult: &ValidationResult{
			Valid:      true,
			Tier:       TierBusiness,
			Expires:    "2027-06-30",
			Email:      "ops@example.com",
			MaxDevices: 10,
			Features: map[Feature]bool{
				FeatureCustomSkills: true,
				FeatureAPIAccess:    true,
				FeatureCloudSync:    false,
			},
		},
	}

	require.NoError(t, cache.save(path))
	loaded := loadCache(path, testLogger())

	require.NotNil(t, loaded.LastValidated)
	assert.True(t, loaded.LastValidated.Equal(validated))
	require.NotNil(t, loaded.LastSuccessfulValidation)
	assert.True(t, loaded.LastSuccessfulValidation.Equal(successful))

	result := loaded.ValidationResult
	require.NotNil(t, result)
	assert.Equal(t, TierBusiness, result.EffectiveTier())
	assert.True(t, result.FeatureEnabled(FeatureCustomSkills))
	assert.True(t, result.FeatureEnabled(FeatureAPIAccess))
	assert.False(t, result.FeatureEnabled(FeatureCloudSync))
	assert.False(t, result.FeatureEnabled(FeatureMultiAgent))
	assert.Equal(t, "2027-06-30", result.Expires)
}

func TestLoadCacheMissingFile(t *testing.T) {
	cache := loadCache(filepath.Join(t.TempDir(), "nope.json"), testLogger())
	assert.Nil(t, cache.LastValidated)
	assert.Nil(t, cache.LastSuccessfulValidation)
	assert.Nil(t, cache.ValidationResult)
}

func TestLoadCacheCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "license_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	cache := loadCache(path, testLogger())
	assert.Nil(t, cache.ValidationResult, "corrupt cache loads as empty, not as an error")
}

func TestSaveCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "cache.json")
	require.NoError(t, ValidationCache{}.save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestCorruptCacheForcesRevalidation(t *testing.T) {
	srv, calls := countingServer(t, 200, proResponse)
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "license_cache.json")
	require.NoError(t, os.WriteFile(cachePath, []byte("garbage"), 0o600))

	v := NewValidator(Options{
		LicenseKey:   "DEMO-PRO-2026",
		Endpoint:     srv.URL,
		CachePath:    cachePath,
		DeviceIDPath: filepath.Join(dir, "device_id"),
		Logger:       testLogger(),
	})

	assert.True(t, v.ShouldValidate())
	result := v.Validate(context.Background(), false)
	assert.True(t, result.Valid)
	assert.EqualValues(t, 1, calls.Load())
}
