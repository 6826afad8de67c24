package referral

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-bot/internal/apperr"
	"partner-bot/internal/models"
	"partner-bot/internal/repository"
	"partner-bot/internal/testutil"
)

func newEngine(t *testing.T) (*Engine, *repository.Repository, *time.Time) {
	t.Helper()
	repo := repository.New(testutil.NewDB(t))
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	e := NewEngine(repo, decimal.NewFromInt(500)).WithClock(func() time.Time { return now })
	return e, repo, &now
}

func TestAttributeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, repo, _ := newEngine(t)

	first, err := e.Attribute(ctx, 1, 2)
	require.NoError(t, err)
	second, err := e.Attribute(ctx, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	total, _, err := repo.CountReferrals(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAttributeRejectsSelfAndSecondReferrer(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newEngine(t)

	_, err := e.Attribute(ctx, 5, 5)
	assert.ErrorIs(t, err, ErrSelfReferral)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.Attribute(ctx, 1, 2)
	require.NoError(t, err)
	_, err = e.Attribute(ctx, 3, 2)
	assert.ErrorIs(t, err, ErrAlreadyReferred)
}

func TestConfirmIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, repo, now := newEngine(t)
	_, err := e.Attribute(ctx, 1, 2)
	require.NoError(t, err)

	n, err := e.Confirm(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	confirmedAt := *now

	*now = now.Add(time.Hour)
	n, err = e.Confirm(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	ref, err := repo.FindReferral(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, ref.Confirmed)
	assert.True(t, ref.ConfirmedAt.Equal(confirmedAt))

	n, err = e.Confirm(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegistrationAndSigningScenario(t *testing.T) {
	ctx := context.Background()
	e, repo, _ := newEngine(t)

	regA, err := e.Register(ctx, Profile{TelegramID: 100, FirstName: "A"}, "")
	require.NoError(t, err)
	assert.True(t, regA.IsNew)
	assert.Nil(t, regA.Referral)
	assert.True(t, strings.HasPrefix(regA.User.ReferralToken, "ref_100_"))
	total, err := repo.CountAllReferrals(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	regB, err := e.Register(ctx, Profile{TelegramID: 200, FirstName: "B"}, regA.User.ReferralToken)
	require.NoError(t, err)
	require.NotNil(t, regB.Referrer)
	assert.Equal(t, int64(100), regB.Referrer.TelegramID)
	require.NotNil(t, regB.Referral)
	assert.False(t, regB.Referral.Confirmed)

	user, err := e.SignAgreement(ctx, 200)
	require.NoError(t, err)
	assert.True(t, user.SignedAgreement)

	ref, err := repo.FindReferral(ctx, 100, 200)
	require.NoError(t, err)
	assert.True(t, ref.Confirmed)
	assert.NotNil(t, ref.ConfirmedAt)
}

func TestRegisterIgnoresTokenForExistingAndSelf(t *testing.T) {
	ctx := context.Background()
	e, repo, _ := newEngine(t)
	regA, err := e.Register(ctx, Profile{TelegramID: 1}, "")
	require.NoError(t, err)

	again, err := e.Register(ctx, Profile{TelegramID: 1}, regA.User.ReferralToken)
	require.NoError(t, err)
	assert.False(t, again.IsNew)

	_, err = e.Register(ctx, Profile{TelegramID: 2}, "ref_unknown")
	require.NoError(t, err)
	_, err = e.Register(ctx, Profile{TelegramID: 3}, "not-a-token")
	require.NoError(t, err)

	total, err := repo.CountAllReferrals(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSignAgreementUnknownUser(t *testing.T) {
	e, _, _ := newEngine(t)

	_, err := e.SignAgreement(context.Background(), 404)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestComputeStatsBalanceFormula(t *testing.T) {
	ctx := context.Background()
	e, repo, now := newEngine(t)
	for _, referred := range []int64{2, 3, 4, 5} {
		_, err := e.Attribute(ctx, 1, referred)
		require.NoError(t, err)
	}
	for _, referred := range []int64{2, 3, 4} {
		_, err := e.Confirm(ctx, referred)
		require.NoError(t, err)
	}
	require.NoError(t, repo.CreatePayout(ctx, &models.Payout{
		UserID: 1, Amount: decimal.NewFromInt(1000), Status: models.PayoutPaid, RequestedAt: *now,
	}))

	stats, err := e.ComputeStats(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(3), stats.Confirmed)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, "1500", stats.TotalIncome.String())
	assert.Equal(t, "1000", stats.PaidOut.String())
	assert.True(t, stats.PendingPayouts.IsZero())
	assert.Equal(t, "500", stats.AvailableBalance.String())
}

func TestComputeStatsNeverNegative(t *testing.T) {
	ctx := context.Background()
	e, repo, now := newEngine(t)
	require.NoError(t, repo.CreatePayout(ctx, &models.Payout{
		UserID: 1, Amount: decimal.NewFromInt(700), Status: models.PayoutApproved, RequestedAt: *now,
	}))

	stats, err := e.ComputeStats(ctx, 1)
	require.NoError(t, err)

	assert.True(t, stats.AvailableBalance.IsZero())
}

func TestComputeStatsReportsStoreFailure(t *testing.T) {
	db := testutil.NewDB(t)
	e := NewEngine(repository.New(db), decimal.NewFromInt(500))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	stats, err := e.ComputeStats(context.Background(), 1)

	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.Zero(t, stats.Total)
	assert.True(t, stats.AvailableBalance.IsZero())
}

func TestNewTokenIsUnique(t *testing.T) {
	a, b := NewToken(1), NewToken(1)

	assert.NotEqual(t, a, b)
	assert.Len(t, strings.TrimPrefix(a, "ref_1_"), 16)
}
