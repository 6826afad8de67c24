package payout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-bot/internal/apperr"
	"partner-bot/internal/models"
	"partner-bot/internal/referral"
	"partner-bot/internal/repository"
	"partner-bot/internal/testutil"
)

type fixture struct {
	repo     *repository.Repository
	engine   *referral.Engine
	workflow *Workflow
	now      time.Time
}

// newFixture gives user 1 three confirmed referrals (1500 at 500 each) and a
// paid payout of 1000, leaving 500 available.
func newFixture(t *testing.T, minimum int64) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		repo: repository.New(testutil.NewDB(t)),
		now:  time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.engine = referral.NewEngine(f.repo, decimal.NewFromInt(500)).WithClock(clock)
	f.workflow = NewWorkflow(f.repo, f.engine, decimal.NewFromInt(minimum)).WithClock(clock)

	for _, referred := range []int64{2, 3, 4} {
		_, err := f.engine.Attribute(ctx, 1, referred)
		require.NoError(t, err)
		_, err = f.engine.Confirm(ctx, referred)
		require.NoError(t, err)
	}
	require.NoError(t, f.repo.CreatePayout(ctx, &models.Payout{
		UserID: 1, Amount: decimal.NewFromInt(1000), Status: models.PayoutPaid, RequestedAt: f.now.Add(-time.Hour),
	}))
	return f
}

func countPayouts(t *testing.T, repo *repository.Repository, userID int64) int {
	t.Helper()
	history, err := repo.ListUserPayouts(context.Background(), userID)
	require.NoError(t, err)
	return len(history)
}

func TestRequestPayoutBelowMinimumCreatesNothing(t *testing.T) {
	f := newFixture(t, 1000)

	_, err := f.workflow.RequestPayout(context.Background(), 1, decimal.NewFromInt(500), models.MethodCard, "4276")

	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 1, countPayouts(t, f.repo, 1))
}

func TestRequestPayoutBalanceScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)

	_, err := f.workflow.RequestPayout(ctx, 1, decimal.NewFromInt(600), models.MethodCard, "4276")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 1, countPayouts(t, f.repo, 1))

	p, err := f.workflow.RequestPayout(ctx, 1, decimal.NewFromInt(500), models.MethodQiwi, "+79990000000")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutPending, p.Status)
	assert.True(t, p.RequestedAt.Equal(f.now))
	assert.Nil(t, p.ProcessedAt)

	stats, err := f.engine.ComputeStats(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stats.AvailableBalance.IsZero())
	assert.Equal(t, "500", stats.PendingPayouts.String())
}

func TestRequestPayoutRejectsUnknownMethod(t *testing.T) {
	f := newFixture(t, 100)

	_, err := f.workflow.RequestPayout(context.Background(), 1, decimal.NewFromInt(200), models.PaymentMethod("cash"), "")

	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestConcurrentRequestsCannotOversubscribe(t *testing.T) {
	f := newFixture(t, 100)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workflow.RequestPayout(context.Background(), 1, decimal.NewFromInt(300), models.MethodCard, "x")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, countPayouts(t, f.repo, 1))
}

func TestDecide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)
	p, err := f.workflow.RequestPayout(ctx, 1, decimal.NewFromInt(500), models.MethodCard, "4276")
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)

	decided, err := f.workflow.Decide(ctx, p.ID, models.PayoutApproved)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutApproved, decided.Status)
	require.NotNil(t, decided.ProcessedAt)
	assert.True(t, decided.ProcessedAt.Equal(f.now))

	again, err := f.workflow.Decide(ctx, p.ID, models.PayoutRejected)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	assert.Equal(t, models.PayoutApproved, again.Status)

	stats, err := f.engine.ComputeStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1500", stats.PaidOut.String())
}

func TestDecideUnknownPayoutLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)
	before, err := f.workflow.History(ctx, 1)
	require.NoError(t, err)

	_, err = f.workflow.Decide(ctx, 4242, models.PayoutApproved)

	assert.ErrorIs(t, err, ErrPayoutNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	after, err := f.workflow.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Status, after[i].Status)
	}
}

func TestDecideRejectsOtherStatuses(t *testing.T) {
	f := newFixture(t, 100)

	_, err := f.workflow.Decide(context.Background(), 1, models.PayoutPaid)

	assert.ErrorIs(t, err, ErrInvalidDecision)
}

func TestListPendingAndHistoryOrdering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100)

	first, err := f.workflow.RequestPayout(ctx, 1, decimal.NewFromInt(200), models.MethodCard, "a")
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	second, err := f.workflow.RequestPayout(ctx, 1, decimal.NewFromInt(300), models.MethodCard, "b")
	require.NoError(t, err)

	pending, err := f.workflow.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	history, err := f.workflow.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, models.PayoutPaid, history[2].Status)
}

func TestCanRequest(t *testing.T) {
	ctx := context.Background()

	ok, stats, err := newFixture(t, 1000).workflow.CanRequest(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "500", stats.AvailableBalance.String())

	ok, _, err = newFixture(t, 500).workflow.CanRequest(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
