package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"partner-bot/internal/apperr"
)

// Repository is the ledger store: users, referral edges, payouts and
// broadcast audit rows.
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a repository bound to a single transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", apperr.ErrStore, op, err)
}
