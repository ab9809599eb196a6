package services

import (
	"context"
	"fmt"
	"time"

	"github.com/burnoutcheck/backend/internal/apperr"
	"github.com/burnoutcheck/backend/internal/config"
	"github.com/burnoutcheck/backend/internal/models"
	"github.com/burnoutcheck/backend/internal/repositories"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Check failures. All of them leave the code record unverified.
var (
	ErrCodeNotFound        = apperr.NotFound("OTP not found. Please request a new one.")
	ErrCodeAlreadyUsed     = apperr.ValidationFailed("OTP already used. Please request a new one.")
	ErrCodeExpired         = apperr.New(apperr.KindExpired, "OTP expired. Please request a new one.")
	ErrCodeTooManyAttempts = apperr.ValidationFailed("Too many failed attempts. Please request a new one.")
	ErrCodeMismatch        = apperr.ValidationFailed("Invalid OTP. Please try again.")
)

const issueRetries = 3

// OTPService issues and checks six-digit verification codes.
type OTPService struct {
	codes       repositories.CodeRepository
	expiry      time.Duration
	maxResend   int
	maxAttempts int
	bcryptCost  int
	logger      *zap.Logger
	now         func() time.Time
}

func NewOTPService(codes repositories.CodeRepository, cfg *config.Config, logger *zap.Logger) *OTPService {
	return &OTPService{
		codes:       codes,
		expiry:      cfg.OTPExpiry,
		maxResend:   cfg.OTPMaxResendAttempts,
		maxAttempts: cfg.OTPMaxAttempts,
		bcryptCost:  cfg.OTPBcryptCost,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Expiry returns how long an issued code stays valid.
func (s *OTPService) Expiry() time.Duration { return s.expiry }

// Issue creates the next code of the (session, channel) lineage and returns
// it in clear text for delivery. Once the lineage holds maxResend codes no
// more are issued.
func (s *OTPService) Issue(ctx context.Context, token string, ch models.Channel, target string) (string, error) {
	for i := 0; i < issueRetries; i++ {
		latest, err := s.codes.Latest(ctx, token, ch)
		if err != nil {
			return "", err
		}

		next := 1
		if latest != nil {
			if latest.ResendCount >= s.maxResend {
				return "", apperr.RateLimited(fmt.Sprintf("Maximum resend limit (%d) reached. Please try again later.", s.maxResend))
			}
			next = latest.ResendCount + 1
		}

		code, err := generateCode()
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("hash code: %w", err)
		}

		created, err := s.codes.Create(ctx, &models.OneTimeCode{
			SessionToken: token,
			Channel:      ch,
			ResendCount:  next,
			CodeHash:     string(hash),
			Target:       target,
			CreatedAt:    s.now(),
		})
		if err != nil {
			return "", err
		}
		if created {
			s.logger.Info("otp issued", zap.String("channel", string(ch)), zap.Int("resend_count", next))
			return code, nil
		}
		// A concurrent Issue took this lineage position; re-read and try the next one.
	}
	return "", apperr.Conflict("Could not issue a new code. Please try again.")
}

// Check verifies code against the latest record of the lineage. A match
// marks the record verified; a mismatch costs one attempt.
func (s *OTPService) Check(ctx context.Context, token string, ch models.Channel, code string) error {
	c, err := s.codes.Latest(ctx, token, ch)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrCodeNotFound
	}
	if err := s.usable(c); err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(code)) == nil {
		ok, err := s.codes.MarkVerified(ctx, c.ID, s.maxAttempts)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return s.reclassify(ctx, c.ID)
	}

	ok, err := s.codes.IncrementAttempts(ctx, c.ID, s.maxAttempts)
	if err != nil {
		return err
	}
	if !ok {
		return s.reclassify(ctx, c.ID)
	}
	return ErrCodeMismatch
}

func (s *OTPService) usable(c *models.OneTimeCode) error {
	switch {
	case c.Verified:
		return ErrCodeAlreadyUsed
	case c.ExpiredAt(s.now(), s.expiry):
		return ErrCodeExpired
	case c.Attempts >= s.maxAttempts:
		return ErrCodeTooManyAttempts
	}
	return nil
}

// reclassify explains why a conditional update on id matched no row.
func (s *OTPService) reclassify(ctx context.Context, id string) error {
	c, err := s.codes.Get(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return ErrCodeNotFound
		}
		return err
	}
	if err := s.usable(c); err != nil {
		return err
	}
	return ErrCodeMismatch
}

const codeDigits = "0123456789"

func generateCode() (string, error) {
	return gonanoid.Generate(codeDigits, 6)
}
