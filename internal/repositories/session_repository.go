package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/burnoutcheck/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepo struct {
	db     *gorm.DB
	expiry time.Duration
}

func NewSessionRepository(db *gorm.DB, expiry time.Duration) *SessionRepo {
	return &SessionRepo{db: db, expiry: expiry}
}

// Create inserts a new session and fails with ErrSessionExists when the
// token is taken.
func (r *SessionRepo) Create(ctx context.Context, s *models.Session) error {
	s.Step = s.CurrentStage()
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(s)
	if result.Error != nil {
		return fmt.Errorf("create session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionExists
	}
	return nil
}

// Get returns a live session by token.
func (r *SessionRepo) Get(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	cutoff := time.Now().UTC().Add(-r.expiry)
	err := r.db.WithContext(ctx).
		Where("token = ? AND created_at > ?", token, cutoff).
		Take(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.Step = s.CurrentStage()
	return &s, nil
}

// Update writes the mutable payload of s. Flags are written only when
// true, so a stale copy can never clear a flag set by a concurrent request.
// Updating an unknown token is a no-op.
func (r *SessionRepo) Update(ctx context.Context, s *models.Session) error {
	s.Step = s.CurrentStage()
	s.UpdatedAt = time.Now().UTC()

	cols := []string{"full_name", "email", "mobile", "payment_reference", "updated_at"}
	flags := []struct {
		set bool
		col string
	}{
		{s.EmailVerified, "email_verified"},
		{s.MobileVerified, "mobile_verified"},
		{s.AssessmentCompleted, "assessment_completed"},
		{s.PaymentCompleted, "payment_completed"},
		{s.ReportGenerated, "report_generated"},
		{s.ReportDelivered, "report_delivered"},
	}
	for _, f := range flags {
		if f.set {
			cols = append(cols, f.col)
		}
	}
	if s.Score != nil {
		cols = append(cols, "score", "level", "answers")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Session{}).
			Where("token = ?", s.Token).
			Select(cols).
			Updates(s).Error
		if err != nil {
			return err
		}
		// step follows the stored flags, which may include ones set by
		// concurrent updates that s has not seen.
		return tx.Model(&models.Session{}).
			Where("token = ?", s.Token).
			UpdateColumn("step", gorm.Expr(stageSQL)).Error
	})
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// stageSQL derives the stage from the flag columns, like Session.CurrentStage.
var stageSQL = fmt.Sprintf(`CASE
	WHEN NOT email_verified THEN '%s'
	WHEN NOT mobile_verified THEN '%s'
	WHEN NOT assessment_completed THEN '%s'
	WHEN NOT payment_completed THEN '%s'
	WHEN NOT report_generated THEN '%s'
	WHEN NOT report_delivered THEN '%s'
	ELSE '%s' END`,
	models.StageRegistered,
	models.StageEmailVerified,
	models.StageMobileVerified,
	models.StageAssessmentSubmitted,
	models.StagePaymentConfirmed,
	models.StageReportGenerated,
	models.StageReportDelivered,
)

// DeleteCreatedBefore removes sessions created before cutoff together with
// their codes, assessment and report.
func (r *SessionRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&models.Session{}).Select("token").Where("created_at < ?", cutoff)

		for _, m := range []interface{}{&models.OneTimeCode{}, &models.Assessment{}, &models.Report{}} {
			if err := tx.Where("session_token IN (?)", expired).Delete(m).Error; err != nil {
				return err
			}
		}

		result := tx.Where("created_at < ?", cutoff).Delete(&models.Session{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return deleted, nil
}
