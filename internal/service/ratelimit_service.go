package service

import (
	"context"
	"time"

	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ActivityRateLimitService implements ports.RateLimitService by counting
// activity-log rows in trailing windows. The limit is advisory: when the
// count query fails the request is allowed, since blocking users on an
// audit-table outage is worse than briefly over-admitting.
type ActivityRateLimitService struct {
	activityRepo ports.ActivityRepository
	log          zerolog.Logger
}

// NewActivityRateLimitService creates a new ActivityRateLimitService.
func NewActivityRateLimitService(activityRepo ports.ActivityRepository, log zerolog.Logger) *ActivityRateLimitService {
	return &ActivityRateLimitService{activityRepo: activityRepo, log: log}
}

// Enforce checks the per-minute and per-hour windows for the given wallet
// action. A limit of 0 disables that window.
func (s *ActivityRateLimitService) Enforce(ctx context.Context, walletID uuid.UUID, action string, perMinute, perHour int) error {
	now := time.Now().UTC()

	if perMinute > 0 {
		count, err := s.activityRepo.CountSince(ctx, walletID, action, now.Add(-time.Minute))
		if err != nil {
			s.log.Warn().Err(err).Str("action", action).Msg("rate limit count failed, allowing request")
			return nil
		}
		if count >= int64(perMinute) {
			return apperror.ErrRateLimitExceeded(action, perMinute, "minute")
		}
	}

	if perHour > 0 {
		count, err := s.activityRepo.CountSince(ctx, walletID, action, now.Add(-time.Hour))
		if err != nil {
			s.log.Warn().Err(err).Str("action", action).Msg("rate limit count failed, allowing request")
			return nil
		}
		if count >= int64(perHour) {
			return apperror.ErrRateLimitExceeded(action, perHour, "hour")
		}
	}

	return nil
}
