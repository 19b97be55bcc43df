package license

import (
	"strings"
	"time"
)

// Tier is a named subscription level determining which features are enabled.
type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

// Feature identifies a gated capability. The set is closed: unknown keys in a
// server payload are carried through the cache untouched, but only the
// constants below are queryable, so a typo in a call site fails to compile
// instead of silently resolving to "disabled".
type Feature string

const (
	FeatureCustomSkills  Feature = "custom_skills"
	FeatureAPIAccess     Feature = "api_access"
	FeatureMultiAgent    Feature = "multi_agent"
	FeaturePremiumVoices Feature = "premium_voices"
	FeatureCloudSync     Feature = "cloud_sync"
)

// KnownFeatures lists every gated capability in stable order.
func KnownFeatures() []Feature {
	return []Feature{
		FeatureCustomSkills,
		FeatureAPIAccess,
		FeatureMultiAgent,
		FeaturePremiumVoices,
		FeatureCloudSync,
	}
}

// ErrorCode is the machine-readable classification of a failed validation.
type ErrorCode string

const (
	// Rejection codes returned by the license service.
	ErrCodeInvalidKey ErrorCode = "invalid_key"
	ErrCodeInactive   ErrorCode = "inactive"
	ErrCodeExpired    ErrorCode = "expired"
	ErrCodeUnknown    ErrorCode = "unknown"

	// Local codes synthesized by the validator.
	ErrCodeNotValidated   ErrorCode = "not_validated"
	ErrCodeNoOfflineCache ErrorCode = "no_offline_cache"
	ErrCodeGraceExpired   ErrorCode = "offline_grace_expired"
)

// ValidationResult is the outcome of one validation attempt. Positive online
// answers deserialize into it directly; offline and cached paths synthesize
// new values. Results are never mutated after creation.
type ValidationResult struct {
	Valid      bool             `json:"valid"`
	Tier       Tier             `json:"tier,omitempty"`
	Expires    string           `json:"expires,omitempty"`
	Email      string           `json:"email,omitempty"`
	MaxDevices int              `json:"max_devices,omitempty"`
	Features   map[Feature]bool `json:"features,omitempty"`

	Error     string    `json:"error,omitempty"`
	ErrorCode ErrorCode `json:"error_code,omitempty"`

	// Offline reports that the failure was an inability to reach the
	// service rather than a definitive rejection. OfflineMode marks a
	// result served from the offline grace allowance.
	Offline              bool `json:"offline,omitempty"`
	OfflineMode          bool `json:"offline_mode,omitempty"`
	OfflineDaysRemaining int  `json:"offline_days_remaining,omitempty"`
}

// EffectiveTier returns the result's tier, defaulting to free when the
// result is invalid or carries no tier.
func (r *ValidationResult) EffectiveTier() Tier {
	if r == nil || !r.Valid || r.Tier == "" {
		return TierFree
	}
	return r.Tier
}

// FeatureEnabled reports whether the named feature is enabled by this
// result. Invalid results and missing keys resolve to false.
func (r *ValidationResult) FeatureEnabled(f Feature) bool {
	if r == nil || !r.Valid {
		return false
	}
	return r.Features[f]
}

// ExpiryDate parses the expires field. The zero time is returned when the
// field is absent or unparseable.
func (r *ValidationResult) ExpiryDate() time.Time {
	if r == nil || r.Expires == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", r.Expires)
	if err != nil {
		return time.Time{}
	}
	return t
}

func invalidResult(code ErrorCode, message string) ValidationResult {
	return ValidationResult{
		Valid:     false,
		Error:     message,
		ErrorCode: code,
	}
}

// MaskKey masks a license key for logs and diagnostics, keeping only the
// first and last few characters.
func MaskKey(key string) string {
	if key == "" {
		return "(none)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
