package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveTier(t *testing.T) {
	tests := []struct {
		name   string
		result *ValidationResult
		want   Tier
	}{
		{"nil result", nil, TierFree},
		{"invalid result", &ValidationResult{Valid: false, Tier: TierPro}, TierFree},
		{"valid without tier", &ValidationResult{Valid: true}, TierFree},
		{"valid pro", &ValidationResult{Valid: true, Tier: TierPro}, TierPro},
		{"valid business", &ValidationResult{Valid: true, Tier: TierBusiness}, TierBusiness},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.EffectiveTier())
		})
	}
}

func TestFeatureEnabledDefaultsFalse(t *testing.T) {
	var nilResult *ValidationResult
	assert.False(t, nilResult.FeatureEnabled(FeatureCustomSkills))

	valid := &ValidationResult{Valid: true, Features: map[Feature]bool{FeatureAPIAccess: true}}
	assert.True(t, valid.FeatureEnabled(FeatureAPIAccess))
	assert.False(t, valid.FeatureEnabled(FeaturePremiumVoices), "missing key is disabled")

	noMap := &ValidationResult{Valid: true}
	assert.False(t, noMap.FeatureEnabled(FeatureAPIAccess))
}

func TestExpiryDate(t *testing.T) {
	r := &ValidationResult{Expires: "2027-12-31"}
	assert.Equal(t, time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC), r.ExpiryDate())

	assert.True(t, (&ValidationResult{}).ExpiryDate().IsZero())
	assert.True(t, (&ValidationResult{Expires: "soon"}).ExpiryDate().IsZero())
}

func TestKnownFeaturesClosedSet(t *testing.T) {
	features := KnownFeatures()
	assert.Len(t, features, 5)
	seen := make(map[Feature]bool, len(features))
	for _, f := range features {
		assert.False(t, seen[f], "duplicate feature key %s", f)
		seen[f] = true
	}
}
