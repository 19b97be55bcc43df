package license

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultCheckInterval = 1 * time.Hour
	defaultErrorBackoff  = 5 * time.Minute
)

// Scheduler runs the periodic revalidation loop the host application owns:
// wake, ask the validator whether a check is due, run it, sleep. After an
// unexpected failure in a cycle it waits the backoff instead of the full
// interval, so transient problems self-correct without hammering the
// service.
type Scheduler struct {
	validator     *Validator
	logger        *slog.Logger
	checkInterval time.Duration
	errorBackoff  time.Duration
}

// NewScheduler creates the revalidation loop for a validator.
func NewScheduler(v *Validator, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		validator:     v,
		logger:        logger.With(slog.String("component", "license_scheduler")),
		checkInterval: defaultCheckInterval,
		errorBackoff:  defaultErrorBackoff,
	}
}

// Run executes the loop until the context is canceled. One check runs
// immediately so startup and the periodic path share the same code.
func (s *Scheduler) Run(ctx context.Context) error {
	wait := s.cycle(ctx)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(s.cycle(ctx))
		}
	}
}

// cycle performs one scheduled check and returns how long to sleep before
// the next one. A panic inside the validator is contained here; the loop
// must outlive any single bad cycle.
func (s *Scheduler) cycle(ctx context.Context) (wait time.Duration) {
	wait = s.checkInterval
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("license check cycle failed",
				slog.Any("panic", r),
				slog.Duration("retry_in", s.errorBackoff),
			)
			wait = s.errorBackoff
		}
	}()

	if !s.validator.ShouldValidate() {
		return wait
	}

	result := s.validator.Validate(ctx, false)
	if result.Valid || result.OfflineMode {
		s.logger.Debug("scheduled license check completed",
			slog.Bool("valid", result.Valid),
			slog.Bool("offline_mode", result.OfflineMode),
		)
		return wait
	}

	s.logger.Warn("scheduled license check returned invalid",
		slog.String("error_code", string(result.ErrorCode)),
		slog.Bool("offline", result.Offline),
	)
	return wait
}
