package services

import (
	"context"
	"time"

	"github.com/burnoutcheck/backend/internal/repositories"
	"go.uber.org/zap"
)

// ExpiryService removes expired sessions and one-time codes in the background.
type ExpiryService struct {
	sessions      repositories.SessionRepository
	codes         repositories.CodeRepository
	sessionExpiry time.Duration
	otpExpiry     time.Duration
	interval      time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

func NewExpiryService(repos *repositories.Repositories, sessionExpiry, otpExpiry, interval time.Duration, logger *zap.Logger) *ExpiryService {
	return &ExpiryService{
		sessions:      repos.Sessions,
		codes:         repos.Codes,
		sessionExpiry: sessionExpiry,
		otpExpiry:     otpExpiry,
		interval:      interval,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CleanupExpired deletes sessions past the session window, with everything
// they own, and codes past the OTP window.
func (s *ExpiryService) CleanupExpired(ctx context.Context) (sessions, codes int64, err error) {
	now := s.now()
	sessions, err = s.sessions.DeleteCreatedBefore(ctx, now.Add(-s.sessionExpiry))
	if err != nil {
		return 0, 0, err
	}
	codes, err = s.codes.DeleteCreatedBefore(ctx, now.Add(-s.otpExpiry))
	if err != nil {
		return sessions, 0, err
	}
	return sessions, codes, nil
}

// Run cleans up every interval until ctx is done.
func (s *ExpiryService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions, codes, err := s.CleanupExpired(ctx)
			if err != nil {
				s.logger.Error("expiry cleanup failed", zap.Error(err))
				continue
			}
			if sessions > 0 || codes > 0 {
				s.logger.Info("expiry cleanup", zap.Int64("sessions", sessions), zap.Int64("codes", codes))
			}
		}
	}
}
