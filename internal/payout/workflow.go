// Package payout validates, creates and settles partner payout requests.
package payout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"partner-bot/internal/apperr"
	"partner-bot/internal/logger"
	"partner-bot/internal/metrics"
	"partner-bot/internal/models"
	"partner-bot/internal/referral"
	"partner-bot/internal/repository"
)

var (
	ErrBelowMinimum        = fmt.Errorf("%w: amount below minimum payout", apperr.ErrValidation)
	ErrInsufficientBalance = fmt.Errorf("%w: amount exceeds available balance", apperr.ErrValidation)
	ErrInvalidMethod       = fmt.Errorf("%w: unknown payment method", apperr.ErrValidation)
	ErrInvalidDecision     = fmt.Errorf("%w: decision must be approved or rejected", apperr.ErrValidation)
	ErrPayoutNotFound      = fmt.Errorf("%w: payout", apperr.ErrNotFound)
	ErrAlreadyDecided      = repository.ErrPayoutNotPending
)

type Workflow struct {
	repo      *repository.Repository
	referrals *referral.Engine
	minimum   decimal.Decimal
	now       func() time.Time
	locks     *userLocks
}

func NewWorkflow(repo *repository.Repository, referrals *referral.Engine, minimum decimal.Decimal) *Workflow {
	return &Workflow{
		repo:      repo,
		referrals: referrals,
		minimum:   minimum,
		now:       time.Now,
		locks:     newUserLocks(),
	}
}

func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	w.now = now
	return w
}

func (w *Workflow) Minimum() decimal.Decimal {
	return w.minimum
}

// CanRequest reports whether the user's available balance reaches the minimum payout.
func (w *Workflow) CanRequest(ctx context.Context, userID int64) (bool, referral.Stats, error) {
	stats, err := w.referrals.ComputeStats(ctx, userID)
	if err != nil {
		return false, stats, err
	}
	return stats.AvailableBalance.GreaterThanOrEqual(w.minimum), stats, nil
}

// RequestPayout creates a pending request after checking the minimum and the
// available balance. Requests of one user are serialized and the balance check
// shares a transaction with the insert.
func (w *Workflow) RequestPayout(ctx context.Context, userID int64, amount decimal.Decimal, method models.PaymentMethod, details string) (*models.Payout, error) {
	if !method.Valid() {
		metrics.PayoutRequests.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidMethod
	}
	if amount.LessThan(w.minimum) {
		metrics.PayoutRequests.WithLabelValues("below_minimum").Inc()
		return nil, ErrBelowMinimum
	}

	unlock := w.locks.lock(userID)
	defer unlock()

	var created *models.Payout
	err := w.repo.Transaction(ctx, func(tx *repository.Repository) error {
		stats, err := w.referrals.ComputeStatsWith(ctx, tx, userID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(stats.AvailableBalance) {
			return ErrInsufficientBalance
		}

		p := &models.Payout{
			UserID:        userID,
			Amount:        amount,
			Status:        models.PayoutPending,
			RequestedAt:   w.now(),
			PaymentMethod: method,
			Details:       details,
		}
		if err := tx.CreatePayout(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			metrics.PayoutRequests.WithLabelValues("insufficient").Inc()
		} else {
			metrics.PayoutRequests.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	metrics.PayoutRequests.WithLabelValues("created").Inc()
	logger.L().Infof("Payout #%d requested by %d: %s via %s", created.ID, userID, amount, method)
	return created, nil
}

// Decide approves or rejects a pending request. Requests that were already
// decided are left untouched and reported with ErrAlreadyDecided.
func (w *Workflow) Decide(ctx context.Context, payoutID uint, decision models.PayoutStatus) (*models.Payout, error) {
	if decision != models.PayoutApproved && decision != models.PayoutRejected {
		return nil, ErrInvalidDecision
	}

	p, err := w.repo.DecidePayout(ctx, payoutID, decision, w.now())
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return nil, ErrPayoutNotFound
	case errors.Is(err, ErrAlreadyDecided):
		return p, err
	case err != nil:
		return nil, err
	}

	metrics.PayoutDecisions.WithLabelValues(string(decision)).Inc()
	logger.L().Infof("Payout #%d %s", p.ID, decision)
	return p, nil
}

// ListPending returns pending requests, oldest first.
func (w *Workflow) ListPending(ctx context.Context) ([]models.Payout, error) {
	return w.repo.ListPendingPayouts(ctx)
}

// History returns the user's requests, most recent first.
func (w *Workflow) History(ctx context.Context, userID int64) ([]models.Payout, error) {
	return w.repo.ListUserPayouts(ctx, userID)
}

type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
