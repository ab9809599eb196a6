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

type CodeRepo struct {
	db *gorm.DB
}

func NewCodeRepository(db *gorm.DB) *CodeRepo {
	return &CodeRepo{db: db}
}

// Latest returns the newest code of the lineage, or nil when none exists.
func (r *CodeRepo) Latest(ctx context.Context, token string, ch models.Channel) (*models.OneTimeCode, error) {
	var c models.OneTimeCode
	err := r.db.WithContext(ctx).
		Where("session_token = ? AND channel = ?", token, ch).
		Order("resend_count DESC").
		Take(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest code: %w", err)
	}
	return &c, nil
}

func (r *CodeRepo) Get(ctx context.Context, id string) (*models.OneTimeCode, error) {
	var c models.OneTimeCode
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("get code: %w", err)
	}
	return &c, nil
}

// Create inserts c unless another code with the same lineage position
// already exists.
func (r *CodeRepo) Create(ctx context.Context, c *models.OneTimeCode) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(c)
	if result.Error != nil {
		return false, fmt.Errorf("create code: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// IncrementAttempts records a failed check on a still-usable code.
func (r *CodeRepo) IncrementAttempts(ctx context.Context, id string, maxAttempts int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OneTimeCode{}).
		Where("id = ? AND verified = ? AND attempts < ?", id, false, maxAttempts).
		Update("attempts", gorm.Expr("attempts + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("increment attempts: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkVerified flips verified once; a second caller gets false.
func (r *CodeRepo) MarkVerified(ctx context.Context, id string, maxAttempts int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OneTimeCode{}).
		Where("id = ? AND verified = ? AND attempts < ?", id, false, maxAttempts).
		Update("verified", true)
	if result.Error != nil {
		return false, fmt.Errorf("mark code verified: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *CodeRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.OneTimeCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired codes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
