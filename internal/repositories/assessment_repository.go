package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/burnoutcheck/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssessmentRepo struct {
	db *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepo {
	return &AssessmentRepo{db: db}
}

// Create inserts the assessment; false means the session already has one.
func (r *AssessmentRepo) Create(ctx context.Context, a *models.Assessment) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if result.Error != nil {
		return false, fmt.Errorf("create assessment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *AssessmentRepo) Get(ctx context.Context, token string) (*models.Assessment, error) {
	var a models.Assessment
	if err := r.db.WithContext(ctx).Where("session_token = ?", token).Take(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return &a, nil
}
