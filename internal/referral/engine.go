// Package referral attributes registrations to referrers, confirms them once the
// referred partner signs the agreement and derives per-user financial summaries.
package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"partner-bot/internal/apperr"
	"partner-bot/internal/logger"
	"partner-bot/internal/metrics"
	"partner-bot/internal/models"
	"partner-bot/internal/repository"
)

const TokenPrefix = "ref_"

var (
	ErrSelfReferral    = fmt.Errorf("%w: self referral", apperr.ErrValidation)
	ErrAlreadyReferred = fmt.Errorf("%w: user already has a referrer", apperr.ErrConflict)
	ErrUserNotFound    = fmt.Errorf("%w: user", apperr.ErrNotFound)
)

type Engine struct {
	repo  *repository.Repository
	bonus decimal.Decimal
	now   func() time.Time
}

func NewEngine(repo *repository.Repository, bonus decimal.Decimal) *Engine {
	return &Engine{repo: repo, bonus: bonus, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Attribute records referrerID -> referredID. Repeating the call for the same
// pair returns the stored edge unchanged.
func (e *Engine) Attribute(ctx context.Context, referrerID, referredID int64) (*models.Referral, error) {
	return e.attribute(ctx, e.repo, referrerID, referredID)
}

func (e *Engine) attribute(ctx context.Context, repo *repository.Repository, referrerID, referredID int64) (*models.Referral, error) {
	if referrerID == referredID {
		return nil, ErrSelfReferral
	}

	existing, err := repo.FindReferralByReferred(ctx, referredID)
	switch {
	case err == nil && existing.ReferrerID == referrerID:
		return existing, nil
	case err == nil:
		return nil, ErrAlreadyReferred
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	ref := &models.Referral{
		ReferrerID:   referrerID,
		ReferredID:   referredID,
		RegisteredAt: e.now(),
	}
	if err := repo.CreateReferral(ctx, ref); err != nil {
		// lost a race against an identical attribution
		if again, findErr := repo.FindReferral(ctx, referrerID, referredID); findErr == nil {
			return again, nil
		}
		return nil, err
	}
	metrics.ReferralsAttributed.Inc()
	return ref, nil
}

// Confirm marks the edges pointing at referredID as commission-eligible. It is a
// no-op for already confirmed or missing edges and reports how many changed.
func (e *Engine) Confirm(ctx context.Context, referredID int64) (int64, error) {
	return e.confirm(ctx, e.repo, referredID)
}

func (e *Engine) confirm(ctx context.Context, repo *repository.Repository, referredID int64) (int64, error) {
	n, err := repo.ConfirmReferrals(ctx, referredID, e.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.ReferralsConfirmed.Add(float64(n))
		logger.L().Infof("Confirmed %d referral(s) for user %d", n, referredID)
	}
	return n, nil
}

type Profile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

type Registration struct {
	User     *models.User
	IsNew    bool
	Referrer *models.User
	Referral *models.Referral
}

// Register finds or creates the user behind a /start command. A referral token is
// honoured only for newly created users and only when it belongs to someone else.
// A new user has not signed yet, so the edge starts unconfirmed until SignAgreement.
func (e *Engine) Register(ctx context.Context, p Profile, token string) (*Registration, error) {
	user, err := e.repo.GetUser(ctx, p.TelegramID)
	if err == nil {
		return &Registration{User: user}, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	var referrer *models.User
	if strings.HasPrefix(token, TokenPrefix) {
		owner, err := e.repo.GetUserByReferralToken(ctx, token)
		switch {
		case err == nil && owner.TelegramID != p.TelegramID:
			referrer = owner
		case err != nil && !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
	}

	reg := &Registration{IsNew: true, Referrer: referrer}
	err = e.repo.Transaction(ctx, func(tx *repository.Repository) error {
		user := &models.User{
			TelegramID:    p.TelegramID,
			Username:      p.Username,
			FirstName:     p.FirstName,
			LastName:      p.LastName,
			ReferralToken: NewToken(p.TelegramID),
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		reg.User = user

		if referrer == nil {
			return nil
		}
		ref, err := e.attribute(ctx, tx, referrer.TelegramID, user.TelegramID)
		if err != nil {
			return err
		}
		reg.Referral = ref
		return nil
	})
	if err != nil {
		// a concurrent /start may have created the user first
		if existing, getErr := e.repo.GetUser(ctx, p.TelegramID); getErr == nil {
			return &Registration{User: existing}, nil
		}
		return nil, err
	}

	if referrer != nil {
		logger.L().Infof("User %d invited by %d", p.TelegramID, referrer.TelegramID)
	}
	return reg, nil
}

// SignAgreement sets the agreement flag and confirms every edge where the
// user is the referred party.
func (e *Engine) SignAgreement(ctx context.Context, telegramID int64) (*models.User, error) {
	var user *models.User
	err := e.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.GetUser(ctx, telegramID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if _, err := tx.MarkSigned(ctx, telegramID, e.now()); err != nil {
			return err
		}
		if _, err := e.confirm(ctx, tx, telegramID); err != nil {
			return err
		}
		u, err := tx.GetUser(ctx, telegramID)
		user = u
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// NewToken builds an unguessable referral token bound to the account id.
func NewToken(telegramID int64) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s%d_%s", TokenPrefix, telegramID, random[:16])
}
