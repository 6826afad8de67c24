package models

import (
	"time"
)

type User struct {
	ID              uint   `gorm:"primaryKey"`
	TelegramID      int64  `gorm:"uniqueIndex;not null"`
	Username        string `gorm:"size:100"`
	FirstName       string `gorm:"size:100"`
	LastName        string `gorm:"size:100"`
	ReferralToken   string `gorm:"size:50;uniqueIndex;not null"`
	SignedAgreement bool   `gorm:"default:false;index"`
	SignedAt        *time.Time
	CreatedAt       time.Time
}

// DisplayName prefers the @username, falling back to the first name.
func (u User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}
