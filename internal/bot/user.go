package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"partner-bot/internal/apperr"
	"partner-bot/internal/logger"
	"partner-bot/internal/models"
	"partner-bot/internal/payout"
	"partner-bot/internal/referral"
	"partner-bot/internal/state"
)

func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if msg.From == nil {
		return nil
	}
	from := msg.From

	reg, err := b.Referrals.Register(ctx.Context(), profileOf(from), commandArg(msg.Text))
	if err != nil {
		logger.L().Errorf("Failed to register user %d: %v", from.ID, err)
		b.send(ctx.Context(), msg.Chat.ID, textGenericError, nil)
		return nil
	}

	if reg.Referrer != nil {
		b.send(ctx.Context(), reg.Referrer.TelegramID, newReferralText(from.FirstName), nil)
	}
	if reg.IsNew {
		b.sendOnboarding(ctx.Context(), msg.Chat.ID)
	}

	b.send(ctx.Context(), msg.Chat.ID, welcomeText(from.FirstName), mainMenuKeyboard(reg.User.SignedAgreement))
	return nil
}

func (b *Bot) sendOnboarding(ctx context.Context, chatID int64) {
	for _, text := range b.Onboarding {
		b.send(ctx, chatID, text, nil)
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.OnboardingDelay):
		}
	}
}

func (b *Bot) handleStatsCommand(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if msg.From == nil {
		return nil
	}
	b.send(ctx.Context(), msg.Chat.ID, b.statsReply(ctx.Context(), msg.From.ID), nil)
	return nil
}

func (b *Bot) statsReply(ctx context.Context, telegramID int64) string {
	user, err := b.Repo.GetUser(ctx, telegramID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return textOnlySigned
	case err != nil:
		logger.L().Errorf("Failed to load user %d: %v", telegramID, err)
		return textGenericError
	case !user.SignedAgreement:
		return textOnlySigned
	}
	return b.statsView(ctx, user)
}

func (b *Bot) handlePayoutCommand(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if msg.From == nil {
		return nil
	}
	if !b.isSigned(ctx.Context(), msg.From.ID) {
		b.send(ctx.Context(), msg.Chat.ID, textOnlySigned, nil)
		return nil
	}
	b.send(ctx.Context(), msg.Chat.ID, b.payoutsView(ctx.Context(), msg.From.ID), payoutsKeyboard())
	return nil
}

func (b *Bot) userCallbacks() map[string]callbackFunc {
	return map[string]callbackFunc{
		"about": func(ctx context.Context, q *telego.CallbackQuery) {
			b.edit(ctx, q, textAbout, mainMenuKeyboard(b.isSigned(ctx, q.From.ID)))
		},
		"partnership_info": func(ctx context.Context, q *telego.CallbackQuery) {
			b.edit(ctx, q, textPartnership, mainMenuKeyboard(b.isSigned(ctx, q.From.ID)))
		},
		"sign_agreement": func(ctx context.Context, q *telego.CallbackQuery) {
			b.edit(ctx, q, agreementText(b.Payouts.Minimum()), agreementKeyboard())
		},
		"confirm_agreement": b.onConfirmAgreement,
		"cancel_agreement": func(ctx context.Context, q *telego.CallbackQuery) {
			b.edit(ctx, q, textDeclined, mainMenuKeyboard(false))
		},
		"back_to_main": func(ctx context.Context, q *telego.CallbackQuery) {
			b.edit(ctx, q, textMainMenu, mainMenuKeyboard(b.isSigned(ctx, q.From.ID)))
		},
		"stats": b.signedOnly(func(ctx context.Context, q *telego.CallbackQuery, user *models.User) {
			b.edit(ctx, q, b.statsView(ctx, user), mainMenuKeyboard(true))
		}),
		"referral_link": b.signedOnly(func(ctx context.Context, q *telego.CallbackQuery, user *models.User) {
			b.edit(ctx, q, referralLinkText(b.link(user.ReferralToken)), mainMenuKeyboard(true))
		}),
		"documents": b.signedOnly(func(ctx context.Context, q *telego.CallbackQuery, _ *models.User) {
			b.edit(ctx, q, textDocuments, mainMenuKeyboard(true))
		}),
		"support": b.signedOnly(func(ctx context.Context, q *telego.CallbackQuery, _ *models.User) {
			b.edit(ctx, q, textSupport, mainMenuKeyboard(true))
		}),
		"payouts":         b.signedOnly(b.onPayouts),
		"back_to_payouts": b.signedOnly(b.onPayouts),
		"request_payout":  b.signedOnly(b.onRequestPayout),
		"payout_history": b.signedOnly(func(ctx context.Context, q *telego.CallbackQuery, user *models.User) {
			history, err := b.Payouts.History(ctx, user.TelegramID)
			if err != nil {
				logger.L().Errorf("Failed to load payout history for %d: %v", user.TelegramID, err)
				b.edit(ctx, q, textGenericError, backKeyboard("back_to_payouts"))
				return
			}
			b.edit(ctx, q, historyText(history), backKeyboard("back_to_payouts"))
		}),
	}
}

func (b *Bot) onConfirmAgreement(ctx context.Context, q *telego.CallbackQuery) {
	_, err := b.Referrals.SignAgreement(ctx, q.From.ID)
	switch {
	case err == nil:
		b.edit(ctx, q, textSigned, mainMenuKeyboard(true))
	case errors.Is(err, referral.ErrUserNotFound):
		b.edit(ctx, q, textUserNotFound, mainMenuKeyboard(false))
	default:
		logger.L().Errorf("Failed to sign agreement for %d: %v", q.From.ID, err)
		b.edit(ctx, q, textGenericError, mainMenuKeyboard(false))
	}
}

func (b *Bot) onPayouts(ctx context.Context, q *telego.CallbackQuery, user *models.User) {
	b.clearState(ctx, user.TelegramID)
	b.edit(ctx, q, b.payoutsView(ctx, user.TelegramID), payoutsKeyboard())
}

func (b *Bot) onRequestPayout(ctx context.Context, q *telego.CallbackQuery, user *models.User) {
	b.clearState(ctx, user.TelegramID)
	text, kb := b.requestPayoutView(ctx, user.TelegramID)
	b.edit(ctx, q, text, kb)
}

func (b *Bot) onMethod(ctx context.Context, q *telego.CallbackQuery, user *models.User) {
	method := models.PaymentMethod(strings.TrimPrefix(q.Data, "method_"))
	if !method.Valid() {
		b.edit(ctx, q, textPayoutRequest, paymentMethodsKeyboard())
		return
	}
	if err := b.States.Set(ctx, user.TelegramID, state.State{Kind: state.AwaitingPayout, Method: method}); err != nil {
		logger.L().Errorf("Failed to save state for %d: %v", user.TelegramID, err)
		b.edit(ctx, q, textGenericError, backKeyboard("request_payout"))
		return
	}
	b.edit(ctx, q, payoutMethodText(method, b.Payouts.Minimum()), backKeyboard("request_payout"))
}

func (b *Bot) statsView(ctx context.Context, user *models.User) string {
	stats, err := b.Referrals.ComputeStats(ctx, user.TelegramID)
	if err != nil {
		logger.L().Errorf("Failed to compute stats for %d: %v", user.TelegramID, err)
	}
	return statsText(stats, b.link(user.ReferralToken))
}

func (b *Bot) payoutsView(ctx context.Context, telegramID int64) string {
	stats, err := b.Referrals.ComputeStats(ctx, telegramID)
	if err != nil {
		logger.L().Errorf("Failed to compute stats for %d: %v", telegramID, err)
	}
	return payoutsText(stats, b.Payouts.Minimum())
}

func (b *Bot) requestPayoutView(ctx context.Context, telegramID int64) (string, *telego.InlineKeyboardMarkup) {
	ok, stats, err := b.Payouts.CanRequest(ctx, telegramID)
	if err != nil {
		logger.L().Errorf("Failed to check payout eligibility for %d: %v", telegramID, err)
		return textGenericError, payoutsKeyboard()
	}
	if !ok {
		return insufficientText(stats.AvailableBalance, b.Payouts.Minimum()), payoutsKeyboard()
	}
	return textPayoutRequest, paymentMethodsKeyboard()
}

func (b *Bot) handleText(ctx *th.Context, update telego.Update) error {
	msg := update.Message
	if msg.From == nil || strings.HasPrefix(msg.Text, "/") {
		return nil
	}

	st, ok, err := b.States.Get(ctx.Context(), msg.From.ID)
	if err != nil {
		logger.L().Errorf("Failed to load state for %d: %v", msg.From.ID, err)
		return nil
	}
	if !ok {
		return nil
	}

	switch st.Kind {
	case state.AwaitingPayout:
		reply, created := b.submitPayout(ctx.Context(), msg.From.ID, st, msg.Text)
		b.send(ctx.Context(), msg.Chat.ID, reply, nil)
		if created != nil {
			owner := models.User{TelegramID: msg.From.ID, Username: msg.From.Username, FirstName: msg.From.FirstName}
			b.send(ctx.Context(), b.AdminID, newPayoutAdminText(owner, created), payoutDecisionKeyboard(created.ID))
		}
	case state.AwaitingBroadcastText:
		if !b.isAdmin(msg.From.ID) {
			b.clearState(ctx.Context(), msg.From.ID)
			return nil
		}
		b.send(ctx.Context(), msg.Chat.ID, b.stageBroadcastText(ctx.Context(), msg.From.ID, msg.Text), broadcastKeyboard())
	}
	return nil
}

// submitPayout turns the free-text answer into a payout request. The state is
// kept on failure so the user can correct the input.
func (b *Bot) submitPayout(ctx context.Context, telegramID int64, st state.State, text string) (string, *models.Payout) {
	in, err := payout.ParseInput(text)
	if err != nil {
		return textAmountMissing, nil
	}

	p, err := b.Payouts.RequestPayout(ctx, telegramID, in.Amount, st.Method, in.Details)
	if err != nil {
		if !errors.Is(err, payout.ErrBelowMinimum) && !errors.Is(err, payout.ErrInsufficientBalance) {
			logger.L().Errorf("Failed to create payout for %d: %v", telegramID, err)
		}
		return payoutErrorText(err, b.Payouts.Minimum()), nil
	}

	b.clearState(ctx, telegramID)
	return textPayoutCreated, p
}

func (b *Bot) clearState(ctx context.Context, telegramID int64) {
	if err := b.States.Clear(ctx, telegramID); err != nil {
		logger.L().Warnf("Failed to clear state for %d: %v", telegramID, err)
	}
}
