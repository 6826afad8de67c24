package worker

import (
	"context"
	"fmt"
	"time"

	"partner-bot/internal/logger"
	"partner-bot/internal/models"
	"partner-bot/internal/state"
)

// reminderTTL bounds how often the same request is brought up again.
const reminderTTL = 24 * time.Hour

type PendingSource interface {
	ListPendingBefore(ctx context.Context, before time.Time) ([]models.Payout, error)
}

type Sender interface {
	Deliver(ctx context.Context, chatID int64, text string) error
}

// Checker reminds the administrator about payout requests that stayed
// pending for longer than Age.
type Checker struct {
	Payouts  PendingSource
	Dedupe   state.Deduper
	Sender   Sender
	AdminID  int64
	Interval time.Duration
	Age      time.Duration

	now func() time.Time
}

func NewChecker(payouts PendingSource, dedupe state.Deduper, sender Sender, adminID int64, interval, age time.Duration) *Checker {
	return &Checker{
		Payouts:  payouts,
		Dedupe:   dedupe,
		Sender:   sender,
		AdminID:  adminID,
		Interval: interval,
		Age:      age,
		now:      time.Now,
	}
}

// Start runs a check immediately and then on every tick until ctx is done.
func (c *Checker) Start(ctx context.Context) {
	if c.Interval <= 0 {
		logger.L().Info("Payout reminder worker disabled")
		return
	}
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	logger.L().Infof("Payout reminder worker started, interval %s", c.Interval)

	c.CheckPending(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.L().Info("Payout reminder worker stopped")
			return
		case <-ticker.C:
			c.CheckPending(ctx)
		}
	}
}

// CheckPending sends one reminder per stale request and returns how many
// were sent.
func (c *Checker) CheckPending(ctx context.Context) int {
	stale, err := c.Payouts.ListPendingBefore(ctx, c.now().Add(-c.Age))
	if err != nil {
		logger.L().Errorf("Error querying pending payouts: %v", err)
		return 0
	}

	sent := 0
	for _, p := range stale {
		key := fmt.Sprintf("payout_reminder_%d", p.ID)
		first, err := c.Dedupe.MarkOnce(ctx, key, reminderTTL)
		if err != nil {
			logger.L().Warnf("Reminder dedupe failed for payout %d: %v", p.ID, err)
			continue
		}
		if !first {
			continue
		}

		if err := c.Sender.Deliver(ctx, c.AdminID, reminderText(p)); err != nil {
			logger.L().Warnf("Failed to send reminder for payout %d: %v", p.ID, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		logger.L().Infof("Sent %d payout reminders", sent)
	}
	return sent
}

func reminderText(p models.Payout) string {
	return fmt.Sprintf(
		"⏳ Заявка #%d ожидает решения\n\nПользователь: %d\nСумма: %s ₽\nСоздана: %s\n\nОткройте /admin → Заявки на выплату.",
		p.ID, p.UserID, p.Amount.StringFixed(2), p.RequestedAt.Format("02.01.2006 15:04"),
	)
}
