package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"partner-bot/internal/models"
)

func (r *Repository) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, wrap("get user", err)
	}
	return &user, nil
}

func (r *Repository) GetUserByReferralToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("referral_token = ?", token).First(&user).Error; err != nil {
		return nil, wrap("get user by referral token", err)
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return wrap("create user", r.db.WithContext(ctx).Create(user).Error)
}

// MarkSigned sets the agreement flag once; it reports whether the row changed.
func (r *Repository) MarkSigned(ctx context.Context, telegramID int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ? AND signed_agreement = ?", telegramID, false).
		Updates(map[string]any{"signed_agreement": true, "signed_at": at})
	if res.Error != nil {
		return false, wrap("mark signed", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) cohortQuery(ctx context.Context, cohort models.Cohort) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.User{})
	switch cohort {
	case models.CohortSigned:
		q = q.Where("signed_agreement = ?", true)
	case models.CohortUnsigned:
		q = q.Where("signed_agreement = ?", false)
	}
	return q
}

// ListUsers returns the users of a cohort in registration order.
func (r *Repository) ListUsers(ctx context.Context, cohort models.Cohort) ([]models.User, error) {
	var users []models.User
	if err := r.cohortQuery(ctx, cohort).Order("id").Find(&users).Error; err != nil {
		return nil, wrap("list users", err)
	}
	return users, nil
}

func (r *Repository) CountUsers(ctx context.Context, cohort models.Cohort) (int64, error) {
	var n int64
	if err := r.cohortQuery(ctx, cohort).Count(&n).Error; err != nil {
		return 0, wrap("count users", err)
	}
	return n, nil
}

func (r *Repository) FirstUsers(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id").Limit(limit).Find(&users).Error; err != nil {
		return nil, wrap("first users", err)
	}
	return users, nil
}
