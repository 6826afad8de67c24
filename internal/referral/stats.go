package referral

import (
	"context"

	"github.com/shopspring/decimal"

	"partner-bot/internal/models"
	"partner-bot/internal/repository"
)

type Stats struct {
	Total            int64
	Confirmed        int64
	Pending          int64
	TotalIncome      decimal.Decimal
	PaidOut          decimal.Decimal
	PendingPayouts   decimal.Decimal
	AvailableBalance decimal.Decimal
}

func zeroStats() Stats {
	return Stats{
		TotalIncome:      decimal.Zero,
		PaidOut:          decimal.Zero,
		PendingPayouts:   decimal.Zero,
		AvailableBalance: decimal.Zero,
	}
}

// ComputeStats derives the referral and payout summary of a user. On failure the
// zero summary is returned together with the store error.
func (e *Engine) ComputeStats(ctx context.Context, userID int64) (Stats, error) {
	return e.ComputeStatsWith(ctx, e.repo, userID)
}

// ComputeStatsWith is ComputeStats against a specific repository, typically one
// bound to a transaction.
func (e *Engine) ComputeStatsWith(ctx context.Context, repo *repository.Repository, userID int64) (Stats, error) {
	total, confirmed, err := repo.CountReferrals(ctx, userID)
	if err != nil {
		return zeroStats(), err
	}
	paid, err := repo.SumPayouts(ctx, userID, models.PayoutApproved, models.PayoutPaid)
	if err != nil {
		return zeroStats(), err
	}
	pending, err := repo.SumPayouts(ctx, userID, models.PayoutPending)
	if err != nil {
		return zeroStats(), err
	}

	income := e.bonus.Mul(decimal.NewFromInt(confirmed))
	available := income.Sub(paid).Sub(pending)
	if available.IsNegative() {
		available = decimal.Zero
	}

	return Stats{
		Total:            total,
		Confirmed:        confirmed,
		Pending:          total - confirmed,
		TotalIncome:      income,
		PaidOut:          paid,
		PendingPayouts:   pending,
		AvailableBalance: available,
	}, nil
}
