package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assessment is the single scored questionnaire of a session.
type Assessment struct {
	ID           string       `gorm:"primaryKey;size:36"`
	SessionToken string       `gorm:"size:64;not null;uniqueIndex"`
	Answers      AnswerLabels `gorm:"serializer:json;type:text;not null"`
	Score        int          `gorm:"not null"`
	Level        string       `gorm:"size:16;not null"`
	CreatedAt    time.Time
}

func (a *Assessment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
