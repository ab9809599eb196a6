package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report is the generated recovery report of a session together with a
// snapshot of the contact data it was generated for.
type Report struct {
	ID           string `gorm:"primaryKey;size:36"`
	SessionToken string `gorm:"size:64;not null;uniqueIndex"`
	Content      string `gorm:"type:text;not null"`

	FullName string `gorm:"size:100"`
	Email    string `gorm:"size:255"`
	Mobile   string `gorm:"size:20"`

	EmailSent   bool `gorm:"not null"`
	EmailSentAt *time.Time
	CreatedAt   time.Time
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
