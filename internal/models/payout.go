package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutPending  PayoutStatus = "pending"
	PayoutApproved PayoutStatus = "approved"
	PayoutRejected PayoutStatus = "rejected"
	PayoutPaid     PayoutStatus = "paid"
)

type PaymentMethod string

const (
	MethodCard     PaymentMethod = "card"
	MethodQiwi     PaymentMethod = "qiwi"
	MethodYooMoney PaymentMethod = "yoomoney"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodQiwi, MethodYooMoney:
		return true
	}
	return false
}

type Payout struct {
	ID            uint            `gorm:"primaryKey"`
	UserID        int64           `gorm:"not null;index"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status        PayoutStatus    `gorm:"size:20;default:'pending';index"`
	RequestedAt   time.Time       `gorm:"index"`
	ProcessedAt   *time.Time
	PaymentMethod PaymentMethod `gorm:"size:50"`
	Details       string        `gorm:"type:text"`
}
