package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"voxdesk/internal/license"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeLicenseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newHandler(t *testing.T, endpoint string, limiter *rate.Limiter) *LicenseHandler {
	t.Helper()
	dir := t.TempDir()
	v := license.NewValidator(license.Options{
		LicenseKey:   "DEMO-PRO-2026",
		Endpoint:     endpoint,
		CachePath:    filepath.Join(dir, "license_cache.json"),
		DeviceIDPath: filepath.Join(dir, "device_id"),
		AppVersion:   "test",
		Logger:       testLogger(),
	})
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return NewLicenseHandler(v, testLogger(), limiter)
}

const proBody = `{"valid": true, "tier": "pro", "features": {"custom_skills": true}}`

func TestGetStatus(t *testing.T) {
	srv := fakeLicenseServer(t, proBody)
	h := newHandler(t, srv.URL, nil)

	ts := httptest.NewServer(h.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status license.StatusInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.True(t, status.NeedsValidation, "nothing validated yet")
	assert.Equal(t, license.TierFree, status.Tier)
	assert.NotEmpty(t, status.DeviceID)
}

func TestForceValidate(t *testing.T) {
	srv := fakeLicenseServer(t, proBody)
	h := newHandler(t, srv.URL, nil)

	ts := httptest.NewServer(h.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/validate", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result license.ValidationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Valid)
	assert.Equal(t, license.TierPro, result.Tier)
}

func TestForceValidateRateLimited(t *testing.T) {
	srv := fakeLicenseServer(t, proBody)
	// One request per hour, burst of one.
	h := newHandler(t, srv.URL, rate.NewLimiter(rate.Every(time.Hour), 1))

	ts := httptest.NewServer(h.Routes())
	defer ts.Close()

	first, err := http.Post(ts.URL+"/validate", "application/json", nil)
	require.NoError(t, err)
	first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Post(ts.URL+"/validate", "application/json", nil)
	require.NoError(t, err)
	defer second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	var problem map[string]any
	require.NoError(t, json.NewDecoder(second.Body).Decode(&problem))
	assert.Equal(t, "Too Many Requests", problem["title"])
}

func TestGetFeatures(t *testing.T) {
	srv := fakeLicenseServer(t, proBody)
	h := newHandler(t, srv.URL, nil)

	ts := httptest.NewServer(h.Routes())
	defer ts.Close()

	// Validate first so feature flags are populated.
	resp, err := http.Post(ts.URL+"/validate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/features")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var states FeatureStates
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&states))
	assert.Equal(t, license.TierPro, states.Tier)
	assert.True(t, states.Features[license.FeatureCustomSkills])
	assert.False(t, states.Features[license.FeatureAPIAccess])
	assert.Len(t, states.Features, len(license.KnownFeatures()), "every known feature is reported")
}

func TestHealthz(t *testing.T) {
	h := NewHealthHandler("test-version")
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test-version", body.Version)
}
