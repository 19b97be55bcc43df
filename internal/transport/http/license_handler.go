// Package http provides the local diagnostics HTTP surface: license status,
// forced revalidation, feature introspection, health, and metrics.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	apierrors "voxdesk/internal/errors"
	"voxdesk/internal/license"
)

// LicenseHandler exposes the validator over HTTP for the dashboard and for
// local debugging. All endpoints are read-or-revalidate; none of them make
// authorization decisions beyond what the validator already decided.
type LicenseHandler struct {
	validator *license.Validator
	logger    *slog.Logger
	limiter   *rate.Limiter
}

// NewLicenseHandler creates the handler. The limiter bounds forced
// revalidations, which bypass the cache and hit the remote service.
func NewLicenseHandler(v *license.Validator, logger *slog.Logger, limiter *rate.Limiter) *LicenseHandler {
	return &LicenseHandler{
		validator: v,
		logger:    logger.With(slog.String("handler", "license")),
		limiter:   limiter,
	}
}

// Routes returns the chi router for license endpoints.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/status", h.GetStatus)
	r.Post("/validate", h.ForceValidate)
	r.Get("/features", h.GetFeatures)
	return r
}

// GetStatus handles GET /api/license/status. Pure cache read.
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.validator.Status()

	h.logger.DebugContext(r.Context(), "license status requested",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("tier", string(status.Tier)),
		slog.Bool("needs_validation", status.NeedsValidation),
	)

	render.JSON(w, r, status)
}

// ForceValidate handles POST /api/license/validate. It bypasses the cache
// and performs a fresh online check, subject to the rate limit.
func (h *LicenseHandler) ForceValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	if !h.limiter.Allow() {
		h.logger.WarnContext(ctx, "forced validation rate limited",
			slog.String("request_id", reqID),
		)
		render.Render(w, r, apierrors.RateLimitProblem(r.URL.Path))
		return
	}

	start := time.Now()
	result := h.validator.Validate(ctx, true)

	h.logger.InfoContext(ctx, "forced validation completed",
		slog.String("request_id", reqID),
		slog.Duration("latency", time.Since(start)),
		slog.Bool("valid", result.Valid),
		slog.Bool("offline_mode", result.OfflineMode),
		slog.String("error_code", string(result.ErrorCode)),
	)

	render.JSON(w, r, result)
}

// FeatureStates is the response body for GET /api/license/features.
type FeatureStates struct {
	Tier     license.Tier             `json:"tier"`
	Features map[license.Feature]bool `json:"features"`
}

// GetFeatures handles GET /api/license/features, resolving every known
// feature key against the cached result. Pure cache read.
func (h *LicenseHandler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	states := FeatureStates{
		Tier:     h.validator.Tier(),
		Features: make(map[license.Feature]bool, len(license.KnownFeatures())),
	}
	for _, f := range license.KnownFeatures() {
		states.Features[f] = h.validator.IsFeatureEnabled(f)
	}
	render.JSON(w, r, states)
}
