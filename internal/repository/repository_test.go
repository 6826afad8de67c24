package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-bot/internal/apperr"
	"partner-bot/internal/models"
	"partner-bot/internal/testutil"
)

func seedUser(t *testing.T, repo *Repository, telegramID int64, signed bool) *models.User {
	t.Helper()
	u := &models.User{
		TelegramID:      telegramID,
		FirstName:       "user",
		ReferralToken:   fmt.Sprintf("ref_%d", telegramID),
		SignedAgreement: signed,
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func TestGetUserNotFound(t *testing.T) {
	repo := New(testutil.NewDB(t))

	_, err := repo.GetUser(context.Background(), 1)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCohortQueries(t *testing.T) {
	ctx := context.Background()
	repo := New(testutil.NewDB(t))
	seedUser(t, repo, 1, true)
	seedUser(t, repo, 2, false)
	seedUser(t, repo, 3, true)

	all, err := repo.CountUsers(ctx, models.CohortAll)
	require.NoError(t, err)
	signed, err := repo.CountUsers(ctx, models.CohortSigned)
	require.NoError(t, err)
	unsigned, err := repo.ListUsers(ctx, models.CohortUnsigned)
	require.NoError(t, err)

	assert.Equal(t, int64(3), all)
	assert.Equal(t, int64(2), signed)
	require.Len(t, unsigned, 1)
	assert.Equal(t, int64(2), unsigned[0].TelegramID)
}

func TestMarkSignedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := New(testutil.NewDB(t))
	seedUser(t, repo, 7, false)
	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	changed, err := repo.MarkSigned(ctx, 7, first)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkSigned(ctx, 7, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)

	u, err := repo.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.True(t, u.SignedAgreement)
	require.NotNil(t, u.SignedAt)
	assert.True(t, u.SignedAt.Equal(first))
}

func TestPayoutOrderingAndSums(t *testing.T) {
	ctx := context.Background()
	repo := New(testutil.NewDB(t))
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, p := range []models.Payout{
		{UserID: 1, Amount: decimal.NewFromInt(100), Status: models.PayoutPending, RequestedAt: base.Add(2 * time.Hour)},
		{UserID: 1, Amount: decimal.NewFromInt(200), Status: models.PayoutPaid, RequestedAt: base},
		{UserID: 1, Amount: decimal.NewFromInt(300), Status: models.PayoutApproved, RequestedAt: base.Add(time.Hour)},
		{UserID: 2, Amount: decimal.RequireFromString("50.5"), Status: models.PayoutPending, RequestedAt: base.Add(-time.Hour)},
	} {
		p := p
		require.NoError(t, repo.CreatePayout(ctx, &p), "payout %d", i)
	}

	paid, err := repo.SumPayouts(ctx, 1, models.PayoutApproved, models.PayoutPaid)
	require.NoError(t, err)
	assert.Equal(t, "500", paid.String())

	none, err := repo.SumPayouts(ctx, 3, models.PayoutPending)
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	pending, err := repo.ListPendingPayouts(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(2), pending[0].UserID)
	assert.Equal(t, int64(1), pending[1].UserID)

	history, err := repo.ListUserPayouts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "100", history[0].Amount.String())
	assert.Equal(t, "200", history[2].Amount.String())

	stale, err := repo.ListPendingBefore(ctx, base)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, int64(2), stale[0].UserID)
}

func TestDecidePayout(t *testing.T) {
	ctx := context.Background()
	repo := New(testutil.NewDB(t))
	p := models.Payout{UserID: 1, Amount: decimal.NewFromInt(1000), Status: models.PayoutPending, RequestedAt: time.Now()}
	require.NoError(t, repo.CreatePayout(ctx, &p))
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	decided, err := repo.DecidePayout(ctx, p.ID, models.PayoutApproved, at)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutApproved, decided.Status)

	again, err := repo.DecidePayout(ctx, p.ID, models.PayoutRejected, at.Add(time.Hour))
	assert.ErrorIs(t, err, ErrPayoutNotPending)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, models.PayoutApproved, again.Status)
	require.NotNil(t, again.ProcessedAt)
	assert.True(t, again.ProcessedAt.Equal(at))

	_, err = repo.DecidePayout(ctx, 999, models.PayoutApproved, at)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConfirmReferralsKeepsFirstTimestamp(t *testing.T) {
	ctx := context.Background()
	repo := New(testutil.NewDB(t))
	require.NoError(t, repo.CreateReferral(ctx, &models.Referral{ReferrerID: 1, ReferredID: 2, RegisteredAt: time.Now()}))
	first := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)

	n, err := repo.ConfirmReferrals(ctx, 2, first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.ConfirmReferrals(ctx, 2, first.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	ref, err := repo.FindReferral(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, ref.ConfirmedAt)
	assert.True(t, ref.ConfirmedAt.Equal(first))

	total, confirmed, err := repo.CountReferrals(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), confirmed)
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := New(testutil.NewDB(t))

	err := repo.Transaction(ctx, func(tx *Repository) error {
		seedUser(t, tx, 10, false)
		return apperr.ErrValidation
	})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = repo.GetUser(ctx, 10)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
