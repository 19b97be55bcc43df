package license

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName identifies the validator's instruments.
const MeterName = "license-validator"

// Metrics holds the validator's OpenTelemetry instruments. A nil *Metrics is
// valid and records nothing, so tests and headless runs need no meter.
type Metrics struct {
	ValidationAttempts metric.Int64Counter
	CacheHits          metric.Int64Counter
	OnlineSuccess      metric.Int64Counter
	OnlineRejections   metric.Int64Counter
	OfflineFallbacks   metric.Int64Counter
	GraceExpirations   metric.Int64Counter
	OnlineDuration     metric.Float64Histogram
}

// NewMetrics registers the validator instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.ValidationAttempts, err = meter.Int64Counter(
		"license_validation_attempts_total",
		metric.WithDescription("Calls to Validate, all paths"),
	); err != nil {
		return nil, fmt.Errorf("create validation attempts counter: %w", err)
	}

	if m.CacheHits, err = meter.Int64Counter(
		"license_validation_cache_hits_total",
		metric.WithDescription("Validations served from the fresh cache without network"),
	); err != nil {
		return nil, fmt.Errorf("create cache hits counter: %w", err)
	}

	if m.OnlineSuccess, err = meter.Int64Counter(
		"license_validation_online_success_total",
		metric.WithDescription("Positive answers from the license service"),
	); err != nil {
		return nil, fmt.Errorf("create online success counter: %w", err)
	}

	if m.OnlineRejections, err = meter.Int64Counter(
		"license_validation_online_rejections_total",
		metric.WithDescription("Definitive rejections from the license service"),
	); err != nil {
		return nil, fmt.Errorf("create online rejections counter: %w", err)
	}

	if m.OfflineFallbacks, err = meter.Int64Counter(
		"license_validation_offline_fallbacks_total",
		metric.WithDescription("Validations routed to the offline grace procedure"),
	); err != nil {
		return nil, fmt.Errorf("create offline fallbacks counter: %w", err)
	}

	if m.GraceExpirations, err = meter.Int64Counter(
		"license_validation_grace_expired_total",
		metric.WithDescription("Offline validations past the grace period"),
	); err != nil {
		return nil, fmt.Errorf("create grace expirations counter: %w", err)
	}

	if m.OnlineDuration, err = meter.Float64Histogram(
		"license_validation_online_duration_seconds",
		metric.WithDescription("Duration of online validation calls"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create online duration histogram: %w", err)
	}

	return m, nil
}

func (v *Validator) recordAttempt(ctx context.Context) {
	if v.metrics == nil {
		return
	}
	v.metrics.ValidationAttempts.Add(ctx, 1)
}

func (v *Validator) recordCacheHit(ctx context.Context) {
	if v.metrics == nil {
		return
	}
	v.metrics.CacheHits.Add(ctx, 1)
}

func (v *Validator) recordOnlineSuccess(ctx context.Context) {
	if v.metrics == nil {
		return
	}
	v.metrics.OnlineSuccess.Add(ctx, 1)
}

func (v *Validator) recordOnlineRejection(ctx context.Context, code ErrorCode) {
	if v.metrics == nil {
		return
	}
	v.metrics.OnlineRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_code", string(code)),
	))
}

func (v *Validator) recordOfflineFallback(ctx context.Context) {
	if v.metrics == nil {
		return
	}
	v.metrics.OfflineFallbacks.Add(ctx, 1)
}

func (v *Validator) recordGraceExpired(ctx context.Context) {
	if v.metrics == nil {
		return
	}
	v.metrics.GraceExpirations.Add(ctx, 1)
}

func (v *Validator) recordOnlineDuration(ctx context.Context, d time.Duration) {
	if v.metrics == nil {
		return
	}
	v.metrics.OnlineDuration.Record(ctx, d.Seconds())
}
