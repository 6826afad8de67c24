package repository

import (
	"context"

	"partner-bot/internal/models"
)

func (r *Repository) SaveBroadcast(ctx context.Context, record *models.BroadcastRecord) error {
	return wrap("save broadcast", r.db.WithContext(ctx).Create(record).Error)
}

func (r *Repository) ListBroadcasts(ctx context.Context, limit int) ([]models.BroadcastRecord, error) {
	var records []models.BroadcastRecord
	if err := r.db.WithContext(ctx).Order("sent_at DESC, id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, wrap("list broadcasts", err)
	}
	return records, nil
}
