package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"partner-bot/internal/apperr"
	"partner-bot/internal/broadcast"
	"partner-bot/internal/logger"
	"partner-bot/internal/models"
	"partner-bot/internal/payout"
	"partner-bot/internal/state"
)

const debugSampleSize = 5

func (b *Bot) handleAdminCommand(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if msg.From == nil {
		return nil
	}
	if !b.isAdmin(msg.From.ID) {
		b.send(ctx.Context(), msg.Chat.ID, textNoAdmin, nil)
		return nil
	}
	b.send(ctx.Context(), msg.Chat.ID, textAdminPanel, adminKeyboard())
	return nil
}

func (b *Bot) handleDebugCommand(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if msg.From == nil || !b.isAdmin(msg.From.ID) {
		return nil
	}
	text, err := b.debugUsers(ctx.Context())
	if err != nil {
		logger.L().Errorf("Failed to collect debug info: %v", err)
		text = textGenericError
	}
	b.send(ctx.Context(), msg.Chat.ID, text, nil)
	return nil
}

func (b *Bot) adminCallbacks() map[string]callbackFunc {
	return map[string]callbackFunc{
		"back_to_admin": func(ctx context.Context, q *telego.CallbackQuery) {
			b.edit(ctx, q, textAdminPanel, adminKeyboard())
		},
		"broadcast": func(ctx context.Context, q *telego.CallbackQuery) {
			b.clearState(ctx, q.From.ID)
			b.edit(ctx, q, textBroadcastMenu, broadcastKeyboard())
		},
		"admin_stats": func(ctx context.Context, q *telego.CallbackQuery) {
			b.edit(ctx, q, b.orGeneric(b.adminStats(ctx)), adminKeyboard())
		},
		"payout_requests": func(ctx context.Context, q *telego.CallbackQuery) {
			b.edit(ctx, q, b.orGeneric(b.pendingRequests(ctx)), adminKeyboard())
		},
		"broadcast_recipients": func(ctx context.Context, q *telego.CallbackQuery) {
			all, signed, unsigned, err := b.cohortCounts(ctx)
			if err != nil {
				logger.L().Errorf("Failed to count cohorts: %v", err)
				b.edit(ctx, q, textGenericError, broadcastKeyboard())
				return
			}
			b.edit(ctx, q, recipientsText(all, signed, unsigned), recipientsKeyboard())
		},
		"broadcast_text": func(ctx context.Context, q *telego.CallbackQuery) {
			if err := b.States.Set(ctx, q.From.ID, state.State{Kind: state.AwaitingBroadcastText}); err != nil {
				logger.L().Errorf("Failed to save state for %d: %v", q.From.ID, err)
				b.edit(ctx, q, textGenericError, broadcastKeyboard())
				return
			}
			b.edit(ctx, q, textAskBroadcast, backKeyboard("broadcast"))
		},
		"broadcast_start": func(ctx context.Context, q *telego.CallbackQuery) {
			preview, err := b.Broadcast.RequestSend()
			if err != nil {
				b.edit(ctx, q, broadcastErrorText(err), broadcastKeyboard())
				return
			}
			b.edit(ctx, q, previewText(preview), broadcastConfirmKeyboard())
		},
		"broadcast_confirm": b.onBroadcastConfirm,
		"broadcast_cancel": func(ctx context.Context, q *telego.CallbackQuery) {
			if err := b.Broadcast.Cancel(); err != nil {
				b.edit(ctx, q, broadcastErrorText(err), broadcastKeyboard())
				return
			}
			b.clearState(ctx, q.From.ID)
			b.edit(ctx, q, textBroadcastStop, broadcastKeyboard())
		},
		"debug_broadcast": func(ctx context.Context, q *telego.CallbackQuery) {
			all, signed, unsigned, err := b.cohortCounts(ctx)
			if err != nil {
				logger.L().Errorf("Failed to count cohorts: %v", err)
			}
			b.edit(ctx, q, debugBroadcastText(b.Broadcast.Snapshot(), all, signed, unsigned), adminKeyboard())
		},
	}
}

func (b *Bot) orGeneric(text string, err error) string {
	if err != nil {
		logger.L().Errorf("Admin view failed: %v", err)
		return textGenericError
	}
	return text
}

func (b *Bot) onDecision(ctx context.Context, q *telego.CallbackQuery) {
	text, decided := b.decide(ctx, q.Data)
	b.edit(ctx, q, text, adminKeyboard())
	if decided != nil {
		b.send(ctx, decided.UserID, decisionUserText(decided), nil)
	}
}

func (b *Bot) onRecipients(ctx context.Context, q *telego.CallbackQuery) {
	cohort := models.Cohort(strings.TrimPrefix(q.Data, "recipients_"))
	count, err := b.Broadcast.SetCohort(ctx, cohort)
	if err != nil {
		if !errors.Is(err, apperr.ErrValidation) && !errors.Is(err, broadcast.ErrSendInProgress) {
			logger.L().Errorf("Failed to select cohort %s: %v", cohort, err)
		}
		b.edit(ctx, q, broadcastErrorText(err), broadcastKeyboard())
		return
	}
	b.edit(ctx, q, cohortSelectedText(cohort, count), broadcastKeyboard())
}

func (b *Bot) onBroadcastConfirm(ctx context.Context, q *telego.CallbackQuery) {
	preview, err := b.Broadcast.RequestSend()
	if err != nil {
		b.edit(ctx, q, broadcastErrorText(err), broadcastKeyboard())
		return
	}

	status := b.send(ctx, q.From.ID, sendStartedText(preview), nil)
	res, err := b.Broadcast.ConfirmSend(ctx, q.From.ID, b, func(p broadcast.Progress) {
		b.editMessage(ctx, status, progressText(p))
	})
	if res == nil {
		b.edit(ctx, q, broadcastErrorText(err), broadcastKeyboard())
		return
	}
	if err != nil {
		logger.L().Errorf("Broadcast finished with error: %v", err)
	}
	if status != nil {
		b.editMessage(ctx, status, resultText(res))
	} else {
		b.send(ctx, q.From.ID, resultText(res), nil)
	}
}

// parseDecision reads approve_<id> and reject_<id> callback data.
func parseDecision(data string) (models.PayoutStatus, uint, bool) {
	var (
		status models.PayoutStatus
		rest   string
	)
	switch {
	case strings.HasPrefix(data, "approve_"):
		status, rest = models.PayoutApproved, strings.TrimPrefix(data, "approve_")
	case strings.HasPrefix(data, "reject_"):
		status, rest = models.PayoutRejected, strings.TrimPrefix(data, "reject_")
	default:
		return "", 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return "", 0, false
	}
	return status, uint(id), true
}

// decide applies an administrator decision and returns the reply for the
// administrator together with the payout whose owner must be notified.
func (b *Bot) decide(ctx context.Context, data string) (string, *models.Payout) {
	status, id, ok := parseDecision(data)
	if !ok {
		return textGenericError, nil
	}

	p, err := b.Payouts.Decide(ctx, id, status)
	switch {
	case err == nil:
		return decisionAdminText(p), p
	case errors.Is(err, payout.ErrAlreadyDecided) && p != nil:
		return alreadyDecidedText(p), nil
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Sprintf("❌ Заявка #%d не найдена", id), nil
	default:
		logger.L().Errorf("Failed to decide payout %d: %v", id, err)
		return textGenericError, nil
	}
}

func (b *Bot) adminStats(ctx context.Context) (string, error) {
	var (
		s   adminSummary
		err error
	)
	if s.Users, err = b.Repo.CountUsers(ctx, models.CohortAll); err != nil {
		return "", err
	}
	if s.Signed, err = b.Repo.CountUsers(ctx, models.CohortSigned); err != nil {
		return "", err
	}
	if s.Referrals, err = b.Repo.CountAllReferrals(ctx); err != nil {
		return "", err
	}
	if s.Pending, err = b.Repo.SumAllPending(ctx); err != nil {
		return "", err
	}
	return adminStatsText(s), nil
}

func (b *Bot) pendingRequests(ctx context.Context) (string, error) {
	pending, err := b.Payouts.ListPending(ctx)
	if err != nil {
		return "", err
	}
	names := make(map[int64]string, len(pending))
	for _, p := range pending {
		if _, seen := names[p.UserID]; seen {
			continue
		}
		if u, err := b.Repo.GetUser(ctx, p.UserID); err == nil {
			names[p.UserID] = u.DisplayName()
		}
	}
	return pendingText(pending, names), nil
}

func (b *Bot) cohortCounts(ctx context.Context) (all, signed, unsigned int64, err error) {
	if all, err = b.Repo.CountUsers(ctx, models.CohortAll); err != nil {
		return
	}
	if signed, err = b.Repo.CountUsers(ctx, models.CohortSigned); err != nil {
		return
	}
	unsigned, err = b.Repo.CountUsers(ctx, models.CohortUnsigned)
	return
}

func (b *Bot) debugUsers(ctx context.Context) (string, error) {
	all, signed, _, err := b.cohortCounts(ctx)
	if err != nil {
		return "", err
	}
	first, err := b.Repo.FirstUsers(ctx, debugSampleSize)
	if err != nil {
		return "", err
	}
	return debugUsersText(all, signed, first), nil
}

// stageBroadcastText stores the administrator's answer as the broadcast body.
func (b *Bot) stageBroadcastText(ctx context.Context, adminID int64, text string) string {
	if err := b.Broadcast.SetText(text); err != nil {
		return broadcastErrorText(err)
	}
	b.clearState(ctx, adminID)
	return textSavedText(b.Broadcast.Snapshot())
}
