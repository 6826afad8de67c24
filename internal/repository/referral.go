package repository

import (
	"context"
	"time"

	"partner-bot/internal/models"
)

func (r *Repository) FindReferral(ctx context.Context, referrerID, referredID int64) (*models.Referral, error) {
	var ref models.Referral
	err := r.db.WithContext(ctx).
		Where("referrer_id = ? AND referred_id = ?", referrerID, referredID).
		First(&ref).Error
	if err != nil {
		return nil, wrap("find referral", err)
	}
	return &ref, nil
}

func (r *Repository) FindReferralByReferred(ctx context.Context, referredID int64) (*models.Referral, error) {
	var ref models.Referral
	if err := r.db.WithContext(ctx).Where("referred_id = ?", referredID).First(&ref).Error; err != nil {
		return nil, wrap("find referral by referred", err)
	}
	return &ref, nil
}

func (r *Repository) CreateReferral(ctx context.Context, ref *models.Referral) error {
	return wrap("create referral", r.db.WithContext(ctx).Create(ref).Error)
}

// ConfirmReferrals confirms every unconfirmed edge pointing at referredID.
// Already confirmed edges keep their original timestamp.
func (r *Repository) ConfirmReferrals(ctx context.Context, referredID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referred_id = ? AND confirmed = ?", referredID, false).
		Updates(map[string]any{"confirmed": true, "confirmed_at": at})
	if res.Error != nil {
		return 0, wrap("confirm referrals", res.Error)
	}
	return res.RowsAffected, nil
}

// CountReferrals returns the total and confirmed number of edges where
// referrerID is the referrer.
func (r *Repository) CountReferrals(ctx context.Context, referrerID int64) (total, confirmed int64, err error) {
	db := r.db.WithContext(ctx)
	if err = db.Model(&models.Referral{}).Where("referrer_id = ?", referrerID).Count(&total).Error; err != nil {
		return 0, 0, wrap("count referrals", err)
	}
	if err = db.Model(&models.Referral{}).
		Where("referrer_id = ? AND confirmed = ?", referrerID, true).
		Count(&confirmed).Error; err != nil {
		return 0, 0, wrap("count confirmed referrals", err)
	}
	return total, confirmed, nil
}

func (r *Repository) CountAllReferrals(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Referral{}).Count(&n).Error; err != nil {
		return 0, wrap("count all referrals", err)
	}
	return n, nil
}
