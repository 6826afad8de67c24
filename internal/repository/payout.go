package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"partner-bot/internal/apperr"
	"partner-bot/internal/models"
)

var ErrPayoutNotPending = fmt.Errorf("%w: payout is not pending", apperr.ErrConflict)

func (r *Repository) CreatePayout(ctx context.Context, payout *models.Payout) error {
	return wrap("create payout", r.db.WithContext(ctx).Create(payout).Error)
}

func (r *Repository) GetPayout(ctx context.Context, id uint) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).First(&payout, id).Error; err != nil {
		return nil, wrap("get payout", err)
	}
	return &payout, nil
}

// SumPayouts adds up the amounts of a user's payouts in the given statuses.
func (r *Repository) SumPayouts(ctx context.Context, userID int64, statuses ...models.PayoutStatus) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := r.db.WithContext(ctx).Model(&models.Payout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status IN ?", userID, statuses).
		Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, wrap("sum payouts", err)
	}
	return sum, nil
}

func (r *Repository) SumAllPending(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := r.db.WithContext(ctx).Model(&models.Payout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ?", models.PayoutPending).
		Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, wrap("sum pending payouts", err)
	}
	return sum, nil
}

// ListPendingPayouts returns pending requests oldest first.
func (r *Repository) ListPendingPayouts(ctx context.Context) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("status = ?", models.PayoutPending).
		Order("requested_at ASC, id ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, wrap("list pending payouts", err)
	}
	return payouts, nil
}

// ListPendingBefore returns pending requests made before the given instant.
func (r *Repository) ListPendingBefore(ctx context.Context, before time.Time) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("status = ? AND requested_at < ?", models.PayoutPending, before).
		Order("requested_at ASC, id ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, wrap("list stale payouts", err)
	}
	return payouts, nil
}

// ListUserPayouts returns a user's requests most recent first.
func (r *Repository) ListUserPayouts(ctx context.Context, userID int64) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("requested_at DESC, id DESC").
		Find(&payouts).Error
	if err != nil {
		return nil, wrap("list user payouts", err)
	}
	return payouts, nil
}

// DecidePayout moves a pending payout into status. A payout that is no longer
// pending is returned unchanged together with ErrPayoutNotPending.
func (r *Repository) DecidePayout(ctx context.Context, id uint, status models.PayoutStatus, at time.Time) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payout, id).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Payout{}).
			Where("id = ? AND status = ?", id, models.PayoutPending).
			Updates(map[string]any{"status": status, "processed_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPayoutNotPending
		}
		payout.Status = status
		payout.ProcessedAt = &at
		return nil
	})
	switch {
	case err == nil:
		return &payout, nil
	case errors.Is(err, ErrPayoutNotPending):
		return &payout, err
	default:
		return nil, wrap("decide payout", err)
	}
}
