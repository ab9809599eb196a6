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

type ReportRepo struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Create inserts the report; false means another request stored one first.
func (r *ReportRepo) Create(ctx context.Context, rep *models.Report) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rep)
	if result.Error != nil {
		return false, fmt.Errorf("create report: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *ReportRepo) Get(ctx context.Context, token string) (*models.Report, error) {
	var rep models.Report
	if err := r.db.WithContext(ctx).Where("session_token = ?", token).Take(&rep).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &rep, nil
}

// MarkEmailSent sets email_sent once and reports whether this call did it.
func (r *ReportRepo) MarkEmailSent(ctx context.Context, token string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("session_token = ? AND email_sent = ?", token, false).
		Updates(map[string]interface{}{"email_sent": true, "email_sent_at": at})
	if result.Error != nil {
		return false, fmt.Errorf("mark report sent: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
