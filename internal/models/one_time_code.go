package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Channel is a verification medium.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelMobile Channel = "mobile"
)

// ParseChannel accepts "email" or "mobile" in any case.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(strings.ToLower(strings.TrimSpace(s))) {
	case ChannelEmail:
		return ChannelEmail, true
	case ChannelMobile:
		return ChannelMobile, true
	}
	return "", false
}

// OneTimeCode is one issued verification code. The record with the highest
// ResendCount for a (session, channel) pair is the authoritative one; the
// unique index makes two concurrent reissues collide instead of both landing.
type OneTimeCode struct {
	ID           string    `gorm:"primaryKey;size:36"`
	SessionToken string    `gorm:"size:64;not null;uniqueIndex:idx_code_lineage,priority:1"`
	Channel      Channel   `gorm:"size:16;not null;uniqueIndex:idx_code_lineage,priority:2"`
	ResendCount  int       `gorm:"not null;uniqueIndex:idx_code_lineage,priority:3"`
	CodeHash     string    `gorm:"size:72;not null"`
	Target       string    `gorm:"size:255;not null"`
	Verified     bool      `gorm:"not null"`
	Attempts     int       `gorm:"not null"`
	CreatedAt    time.Time `gorm:"index;not null"`
}

func (c *OneTimeCode) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ExpiredAt reports whether the code is past its window at now.
func (c *OneTimeCode) ExpiredAt(now time.Time, window time.Duration) bool {
	return c.CreatedAt.Add(window).Before(now)
}
