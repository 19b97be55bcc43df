package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultEndpoint is the production license service. It can be
	// overridden through VOXDESK_LICENSE_ENDPOINT for staging and tests.
	DefaultEndpoint = "https://api.voxdesk.app/v1/license/validate"

	// DefaultValidationInterval is how long a cached answer is trusted
	// before a fresh online check is attempted.
	DefaultValidationInterval = 24 * time.Hour

	// DefaultOfflineGracePeriod is how long the client keeps operating on
	// the last known-good online result without reaching the service.
	DefaultOfflineGracePeriod = 72 * time.Hour

	// DefaultRequestTimeout bounds the outbound validation call.
	DefaultRequestTimeout = 10 * time.Second
)

// Options configures a Validator. Zero values fall back to the package
// defaults; only CachePath and DeviceIDPath are required.
type Options struct {
	// LicenseKey may be empty, meaning unlicensed (free tier).
	LicenseKey   string
	Endpoint     string
	CachePath    string
	DeviceIDPath string
	AppVersion   string

	ValidationInterval time.Duration
	OfflineGracePeriod time.Duration
	RequestTimeout     time.Duration

	Logger  *slog.Logger
	Metrics *Metrics
}

// Validator decides, per call, whether to trust the cached validation
// outcome, attempt an online check, or fall back to the bounded offline
// allowance. One instance should exist per process, owned by the
// application's composition root; calls are expected to be serialized by the
// caller, though the derived queries are safe to run concurrently.
type Validator struct {
	licenseKey string
	endpoint   string
	cachePath  string
	appVersion string
	interval   time.Duration
	grace      time.Duration

	device  DeviceIdentity
	client  *http.Client
	logger  *slog.Logger
	metrics *Metrics

	mu    sync.RWMutex
	cache ValidationCache

	now func() time.Time
}

// NewValidator resolves the device identity, loads the persisted cache, and
// returns a ready validator. It never fails: a missing or corrupt cache
// loads empty, and an unpersistable device id degrades to session scope.
func NewValidator(opts Options) *Validator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "license_validator"))

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	interval := opts.ValidationInterval
	if interval <= 0 {
		interval = DefaultValidationInterval
	}
	grace := opts.OfflineGracePeriod
	if grace <= 0 {
		grace = DefaultOfflineGracePeriod
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	v := &Validator{
		licenseKey: opts.LicenseKey,
		endpoint:   endpoint,
		cachePath:  opts.CachePath,
		appVersion: opts.AppVersion,
		interval:   interval,
		grace:      grace,
		device:     resolveDeviceIdentity(opts.DeviceIDPath, logger),
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    opts.Metrics,
		now:        time.Now,
	}
	v.cache = loadCache(opts.CachePath, logger)

	logger.Info("license validator initialized",
		slog.String("license_key", MaskKey(opts.LicenseKey)),
		slog.String("device_id", v.device.Masked()),
		slog.Bool("device_id_ephemeral", v.device.Ephemeral),
		slog.Duration("validation_interval", interval),
		slog.Duration("offline_grace_period", grace),
	)
	return v
}

// ShouldValidate reports whether the cached answer is stale enough that a
// fresh online check is due. Pure time comparison, no I/O.
func (v *Validator) ShouldValidate() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shouldValidateLocked()
}

func (v *Validator) shouldValidateLocked() bool {
	if v.cache.LastValidated == nil {
		return true
	}
	return v.now().Sub(*v.cache.LastValidated) >= v.interval
}

// Validate returns the current authorization decision. Without force it
// short-circuits to the cached result whenever the last validation is
// younger than the validation interval; otherwise it attempts an online
// check and, failing that, the offline grace procedure. Failures are always
// returned as data, never as a fault.
func (v *Validator) Validate(ctx context.Context, force bool) ValidationResult {
	v.recordAttempt(ctx)

	if !force {
		v.mu.RLock()
		fresh := !v.shouldValidateLocked()
		cached := v.cache.ValidationResult
		v.mu.RUnlock()

		if fresh {
			v.recordCacheHit(ctx)
			if cached == nil {
				return invalidResult(ErrCodeNotValidated, "no validation has been performed yet")
			}
			return *cached
		}
	}

	result, reachable := v.validateOnline(ctx)
	if !reachable {
		return v.handleOfflineValidation(ctx)
	}
	return result
}

// validateOnline performs one request against the license service. The
// second return value reports whether a structured answer was obtained; a
// transport failure, a 5xx, or an undecodable body all count as unreachable
// and are routed to the offline grace procedure by the caller.
func (v *Validator) validateOnline(ctx context.Context) (ValidationResult, bool) {
	start := v.now()

	payload := struct {
		LicenseKey string `json:"license_key,omitempty"`
		DeviceID   string `json:"device_id"`
		AppVersion string `json:"app_version"`
	}{
		LicenseKey: v.licenseKey,
		DeviceID:   v.device.ID,
		AppVersion: v.appVersion,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		// Marshal of a plain struct cannot fail; treat as unreachable so
		// the caller still gets a defined state.
		return ValidationResult{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		v.logger.Warn("license request construction failed",
			slog.String("endpoint", v.endpoint),
			slog.String("error", err.Error()),
		)
		return ValidationResult{}, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Warn("license service unreachable",
			slog.String("endpoint", v.endpoint),
			slog.String("error", err.Error()),
		)
		return ValidationResult{}, false
	}
	defer resp.Body.Close()

	v.recordOnlineDuration(ctx, v.now().Sub(start))

	// A 5xx proves nothing about the license; only a well-formed rejection
	// body is treated as a definitive answer.
	if resp.StatusCode >= http.StatusInternalServerError {
		v.logger.Warn("license service error response",
			slog.Int("status", resp.StatusCode),
		)
		return ValidationResult{}, false
	}

	var result ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		v.logger.Warn("license response undecodable",
			slog.Int("status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return ValidationResult{}, false
	}

	if resp.StatusCode == http.StatusOK && result.Valid {
		return v.storeSuccess(ctx, result), true
	}
	return v.storeRejection(ctx, result), true
}

// storeSuccess records a positive online answer: both timestamps advance and
// the result is persisted.
func (v *Validator) storeSuccess(ctx context.Context, result ValidationResult) ValidationResult {
	if result.Tier == "" {
		result.Tier = TierFree
	}
	if result.Features == nil {
		result.Features = map[Feature]bool{}
	}

	now := v.now()
	v.mu.Lock()
	v.cache.LastValidated = &now
	v.cache.LastSuccessfulValidation = &now
	v.cache.ValidationResult = &result
	v.persistLocked()
	v.mu.Unlock()

	v.recordOnlineSuccess(ctx)
	v.logger.Info("license validated online",
		slog.String("tier", string(result.Tier)),
		slog.String("expires", result.Expires),
	)
	return result
}

// storeRejection records a definitive negative answer. last_validated
// advances so the rejection is honored for a full interval, but
// last_successful_validation is left untouched: a later network outage
// still falls back to the last positive answer, if any.
func (v *Validator) storeRejection(ctx context.Context, result ValidationResult) ValidationResult {
	result.Valid = false
	if result.ErrorCode == "" {
		result.ErrorCode = ErrCodeUnknown
	}
	if result.Error == "" {
		result.Error = "license rejected by validation service"
	}

	now := v.now()
	v.mu.Lock()
	v.cache.LastValidated = &now
	v.cache.ValidationResult = &result
	v.persistLocked()
	v.mu.Unlock()

	v.recordOnlineRejection(ctx, result.ErrorCode)
	v.logger.Warn("license rejected by service",
		slog.String("error_code", string(result.ErrorCode)),
		slog.String("error", result.Error),
	)
	return result
}

// handleOfflineValidation serves the bounded offline allowance. Results from
// this path are never persisted: they reflect an inability to reach the
// server, not a new validation event.
func (v *Validator) handleOfflineValidation(ctx context.Context) ValidationResult {
	v.recordOfflineFallback(ctx)

	v.mu.RLock()
	lastSuccess := v.cache.LastSuccessfulValidation
	cached := v.cache.ValidationResult
	v.mu.RUnlock()

	if lastSuccess == nil || cached == nil {
		result := invalidResult(ErrCodeNoOfflineCache,
			"license service unreachable and no previous successful validation exists")
		result.Offline = true
		v.logger.Warn("offline with no cached validation")
		return result
	}

	elapsed := v.now().Sub(*lastSuccess)
	if elapsed <= v.grace {
		remaining := int((v.grace - elapsed).Hours() / 24)
		result := *cached
		result.OfflineMode = true
		result.OfflineDaysRemaining = remaining
		v.logger.Info("serving license from offline grace",
			slog.Int("days_remaining", remaining),
			slog.Bool("valid", result.Valid),
		)
		return result
	}

	v.recordGraceExpired(ctx)
	daysOffline := int(elapsed.Hours() / 24)
	result := invalidResult(ErrCodeGraceExpired,
		fmt.Sprintf("offline for %d days, beyond the %d day grace period; connect to revalidate",
			daysOffline, int(v.grace.Hours()/24)))
	result.Offline = true
	v.logger.Warn("offline grace period exhausted",
		slog.Int("days_offline", daysOffline),
	)
	return result
}

// persistLocked writes the cache file; the caller holds the write lock.
// Persistence failures are absorbed: the in-memory state stays authoritative
// for this session and the next scheduled cycle retries naturally.
func (v *Validator) persistLocked() {
	if err := v.cache.save(v.cachePath); err != nil {
		v.logger.Warn("license cache not persisted",
			slog.String("path", v.cachePath),
			slog.String("error", err.Error()),
		)
	}
}

// IsFeatureEnabled reports whether the named feature is enabled by the
// cached result. Pure cache read; never triggers validation.
func (v *Validator) IsFeatureEnabled(f Feature) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cache.ValidationResult.FeatureEnabled(f)
}

// Tier returns the cached subscription tier, defaulting to free when the
// cached result is absent or invalid. Pure cache read.
func (v *Validator) Tier() Tier {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cache.ValidationResult.EffectiveTier()
}

// StatusInfo is a diagnostic snapshot of the validator's state. It is for
// display only and carries no authorization decision.
type StatusInfo struct {
	LicenseKey               string     `json:"license_key"`
	DeviceID                 string     `json:"device_id"`
	Tier                     Tier       `json:"tier"`
	Valid                    bool       `json:"valid"`
	LastValidated            *time.Time `json:"last_validated,omitempty"`
	LastSuccessfulValidation *time.Time `json:"last_successful_validation,omitempty"`
	NextValidationDue        *time.Time `json:"next_validation_due,omitempty"`
	NeedsValidation          bool       `json:"needs_validation"`
}

// Status returns the diagnostic snapshot with masked identifiers. Pure
// cache read.
func (v *Validator) Status() StatusInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	info := StatusInfo{
		LicenseKey:      MaskKey(v.licenseKey),
		DeviceID:        v.device.Masked(),
		Tier:            v.cache.ValidationResult.EffectiveTier(),
		Valid:           v.cache.ValidationResult != nil && v.cache.ValidationResult.Valid,
		NeedsValidation: v.shouldValidateLocked(),
	}
	if v.cache.LastValidated != nil {
		t := *v.cache.LastValidated
		info.LastValidated = &t
		due := t.Add(v.interval)
		info.NextValidationDue = &due
	}
	if v.cache.LastSuccessfulValidation != nil {
		t := *v.cache.LastSuccessfulValidation
		info.LastSuccessfulValidation = &t
	}
	return info
}

// DeviceID exposes the unmasked device identity for the outbound request
// path and tests.
func (v *Validator) DeviceID() string {
	return v.device.ID
}
