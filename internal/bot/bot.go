package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"partner-bot/internal/apperr"
	"partner-bot/internal/broadcast"
	"partner-bot/internal/logger"
	"partner-bot/internal/models"
	"partner-bot/internal/payout"
	"partner-bot/internal/referral"
	"partner-bot/internal/repository"
	"partner-bot/internal/state"
)

type Deps struct {
	Repo            *repository.Repository
	Referrals       *referral.Engine
	Payouts         *payout.Workflow
	Broadcast       *broadcast.Session
	States          state.Store
	AdminID         int64
	Onboarding      []string
	OnboardingDelay time.Duration
}

type Bot struct {
	Instance        *telego.Bot
	Repo            *repository.Repository
	Referrals       *referral.Engine
	Payouts         *payout.Workflow
	Broadcast       *broadcast.Session
	States          state.Store
	AdminID         int64
	Onboarding      []string
	OnboardingDelay time.Duration

	username string
}

func NewBot(token string, deps Deps) (*Bot, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return newBot(tgBot, deps), nil
}

func newBot(instance *telego.Bot, deps Deps) *Bot {
	return &Bot{
		Instance:        instance,
		Repo:            deps.Repo,
		Referrals:       deps.Referrals,
		Payouts:         deps.Payouts,
		Broadcast:       deps.Broadcast,
		States:          deps.States,
		AdminID:         deps.AdminID,
		Onboarding:      deps.Onboarding,
		OnboardingDelay: deps.OnboardingDelay,
	}
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.Instance.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	b.username = me.Username

	updates, err := b.Instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create update handler: %w", err)
	}
	b.register(handler)

	logger.L().Infof("Bot @%s started", me.Username)
	handler.Start()
	return nil
}

func (b *Bot) register(handler *th.BotHandler) {
	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleStatsCommand, th.CommandEqual("stats"))
	handler.Handle(b.handlePayoutCommand, th.CommandEqual("payout"))
	handler.Handle(b.handleAdminCommand, th.CommandEqual("admin"))
	handler.Handle(b.handleDebugCommand, th.CommandEqual("debug"))

	for data, fn := range b.userCallbacks() {
		handler.Handle(b.callback(fn), th.CallbackDataEqual(data))
	}
	for data, fn := range b.adminCallbacks() {
		handler.Handle(b.callback(b.adminOnly(fn)), th.CallbackDataEqual(data))
	}
	handler.Handle(b.callback(b.signedOnly(b.onMethod)), th.CallbackDataPrefix("method_"))
	handler.Handle(b.callback(b.adminOnly(b.onDecision)), th.CallbackDataPrefix("approve_"))
	handler.Handle(b.callback(b.adminOnly(b.onDecision)), th.CallbackDataPrefix("reject_"))
	handler.Handle(b.callback(b.adminOnly(b.onRecipients)), th.CallbackDataPrefix("recipients_"))

	handler.Handle(b.handleText, th.AnyMessageWithText())
}

type callbackFunc func(ctx context.Context, q *telego.CallbackQuery)

func (b *Bot) callback(fn callbackFunc) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		q := update.CallbackQuery
		if err := b.Instance.AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(q.ID)); err != nil {
			logger.L().Debugf("Failed to answer callback %s: %v", q.ID, err)
		}
		fn(ctx.Context(), q)
		return nil
	}
}

func (b *Bot) isAdmin(telegramID int64) bool {
	return b.AdminID != 0 && telegramID == b.AdminID
}

func (b *Bot) adminOnly(fn callbackFunc) callbackFunc {
	return func(ctx context.Context, q *telego.CallbackQuery) {
		if !b.isAdmin(q.From.ID) {
			b.edit(ctx, q, textNoAdmin, nil)
			return
		}
		fn(ctx, q)
	}
}

func (b *Bot) signedOnly(fn func(ctx context.Context, q *telego.CallbackQuery, user *models.User)) callbackFunc {
	return func(ctx context.Context, q *telego.CallbackQuery) {
		user, err := b.Repo.GetUser(ctx, q.From.ID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			logger.L().Errorf("Failed to load user %d: %v", q.From.ID, err)
			b.edit(ctx, q, textGenericError, nil)
			return
		}
		if user == nil || !user.SignedAgreement {
			b.edit(ctx, q, textOnlySigned, mainMenuKeyboard(false))
			return
		}
		fn(ctx, q, user)
	}
}

// isSigned reports the agreement flag, treating unknown users as unsigned.
func (b *Bot) isSigned(ctx context.Context, telegramID int64) bool {
	user, err := b.Repo.GetUser(ctx, telegramID)
	return err == nil && user.SignedAgreement
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, kb *telego.InlineKeyboardMarkup) *telego.Message {
	params := tu.Message(tu.ID(chatID), text)
	if kb != nil {
		params = params.WithReplyMarkup(kb)
	}
	msg, err := b.Instance.SendMessage(ctx, params)
	if err != nil {
		logger.L().Warnf("Failed to send message to %d: %v", chatID, err)
		return nil
	}
	return msg
}

// edit replaces the message behind a callback, falling back to a new message.
func (b *Bot) edit(ctx context.Context, q *telego.CallbackQuery, text string, kb *telego.InlineKeyboardMarkup) {
	if q.Message != nil {
		params := tu.EditMessageText(tu.ID(q.Message.GetChat().ID), q.Message.GetMessageID(), text)
		if kb != nil {
			params = params.WithReplyMarkup(kb)
		}
		_, err := b.Instance.EditMessageText(ctx, params)
		if err == nil {
			return
		}
		logger.L().Warnf("Failed to edit message for %d: %v", q.From.ID, err)
	}
	b.send(ctx, q.From.ID, text, kb)
}

func (b *Bot) editMessage(ctx context.Context, msg *telego.Message, text string) {
	if msg == nil {
		return
	}
	_, err := b.Instance.EditMessageText(ctx, tu.EditMessageText(tu.ID(msg.Chat.ID), msg.MessageID, text))
	if err != nil {
		logger.L().Warnf("Failed to update message %d: %v", msg.MessageID, err)
	}
}

// Deliver sends a plain text message. It serves broadcasts and reminders.
func (b *Bot) Deliver(ctx context.Context, chatID int64, text string) error {
	if _, err := b.Instance.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrDelivery, err)
	}
	return nil
}

func (b *Bot) link(token string) string {
	return referralLink(b.username, token)
}

func profileOf(u *telego.User) referral.Profile {
	return referral.Profile{
		TelegramID: u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
	}
}

func commandArg(text string) string {
	parts := strings.Fields(text)
	if len(parts) > 1 {
		return parts[1]
	}
	return ""
}
