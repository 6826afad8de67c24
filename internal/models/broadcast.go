package models

import (
	"time"
)

type Cohort string

const (
	CohortAll      Cohort = "all"
	CohortSigned   Cohort = "signed"
	CohortUnsigned Cohort = "unsigned"
)

func (c Cohort) Valid() bool {
	switch c {
	case CohortAll, CohortSigned, CohortUnsigned:
		return true
	}
	return false
}

// BroadcastRecord is the audit row of a completed broadcast.
type BroadcastRecord struct {
	ID              uint   `gorm:"primaryKey"`
	MessageText     string `gorm:"type:text;not null"`
	SentAt          time.Time
	SentBy          int64 `gorm:"not null"`
	RecipientsCount int   `gorm:"default:0"`
}

func (BroadcastRecord) TableName() string {
	return "admin_messages"
}

// All lists every persisted model for migrations.
func All() []any {
	return []any{&User{}, &Referral{}, &Payout{}, &BroadcastRecord{}}
}
