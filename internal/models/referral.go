package models

import (
	"time"
)

// Referral is a directed edge between two Telegram accounts. A user can be
// referred only once, so ReferredID is unique.
type Referral struct {
	ID           uint  `gorm:"primaryKey"`
	ReferrerID   int64 `gorm:"not null;index"`
	ReferredID   int64 `gorm:"not null;uniqueIndex"`
	Confirmed    bool  `gorm:"default:false;index"`
	RegisteredAt time.Time
	ConfirmedAt  *time.Time
}
