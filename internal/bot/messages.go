package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"partner-bot/internal/broadcast"
	"partner-bot/internal/models"
	"partner-bot/internal/payout"
	"partner-bot/internal/referral"
)

const (
	textOnlySigned    = "❌ Доступно только после подписания соглашения"
	textNoAdmin       = "❌ У вас нет прав администратора"
	textAdminPanel    = "👨‍💻 Панель администратора"
	textMainMenu      = "Главное меню:"
	textGenericError  = "❌ Произошла ошибка. Пожалуйста, попробуйте снова."
	textUserNotFound  = "❌ Ошибка: пользователь не найден"
	textSigned        = "✅ Соглашение успешно подписано! Теперь вам доступен полный функционал бота."
	textDeclined      = "❌ Вы отказались от подписания соглашения. Без этого доступен только ознакомительный функционал."
	textAskBroadcast  = "📝 Введите текст рассылки:"
	textBroadcastStop = "❌ Рассылка отменена."
	textPayoutRequest = "💳 Запрос выплаты\n\nВыберите способ получения выплаты:"
	textPayoutCreated = "✅ Запрос на выплату отправлен!\n\nВаша заявка принята в обработку. Обычно выплаты производятся в течение 1-3 рабочих дней.\n\nСтатус выплаты можно отслеживать в разделе \"История выплат\""

	textAbout = `🏢 О нашей компании

Мы занимаемся развитием перспективных проектов в сфере digital. Наша миссия - создавать взаимовыгодные партнёрства.

• Более 1000 довольных партнёров
• 50+ успешных проектов
• 5 лет на рынке`

	textPartnership = `💼 Партнёрская программа

Условия сотрудничества:
• Высокие комиссионные - до 30%
• Регулярные выплаты каждую неделю
• Поддержка 24/7
• Персональный менеджер

Стань частью нашей команды!`

	textDocuments = `📄 Документы

• Партнёрское соглашение: https://example.com/agreement.pdf
• Инструкция по работе: https://example.com/guide.pdf
• Рекламные материалы: https://example.com/materials.zip

Скачайте и ознакомьтесь с документами`

	textSupport = `🆘 Поддержка

Техническая поддержка: @support_username
По вопросам выплат: @finance_username
Общие вопросы: @manager_username

Мы всегда готовы помочь!`

	textBroadcastMenu = `📢 Рассылка сообщений

Доступные действия:
• Текст рассылки - установить текст сообщения
• Получатели - выбрать аудиторию
• Начать рассылку - запустить рассылку

Текущие настройки сохраняются до перезапуска бота`
)

const dateLayout = "02.01.2006 15:04"

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func welcomeText(name string) string {
	return fmt.Sprintf("👋 Привет, %s!\n\nДобро пожаловать в нашу партнёрскую программу! Мы рады видеть тебя в нашей команде.", name)
}

func agreementText(minimum decimal.Decimal) string {
	return fmt.Sprintf(`📝 Партнёрское соглашение

Основные условия:
1. Вы получаете вознаграждение за каждого привлеченного клиента
2. Выплаты производятся по запросу от %s руб.
3. Запрещено спам-рассылки и недобросовестные методы привлечения
4. Мы оставляем за собой право изменять условия с уведомлением

Нажимая "Подписать", вы соглашаетесь с условиями.`, minimum.String())
}

func referralLink(botUsername, token string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, token)
}

func referralLinkText(link string) string {
	return fmt.Sprintf("🔗 Ваша реферальная ссылка:\n%s\n\nПоделитесь этой ссылкой с друзьями и начинайте зарабатывать! 💰", link)
}

func statsText(s referral.Stats, link string) string {
	return fmt.Sprintf(`📊 Ваша статистика

👥 Всего привлечено: %d
✅ Подтверждено: %d
🟡 Ожидают: %d

💰 Финансы:
💵 Общий доход: %s руб.
💳 Доступно для вывода: %s руб.
⏳ Ожидает выплаты: %s руб.
✅ Выплачено: %s руб.

💎 Ваша реферальная ссылка:
%s`,
		s.Total, s.Confirmed, s.Pending,
		money(s.TotalIncome), money(s.AvailableBalance), money(s.PendingPayouts), money(s.PaidOut),
		link)
}

func payoutsText(s referral.Stats, minimum decimal.Decimal) string {
	return fmt.Sprintf(`💰 Выплаты

💵 Доступно для вывода: %s руб.
⏳ Ожидает выплаты: %s руб.

Условия выплат:
• Минимальная сумма: %s руб.
• Выплаты: каждую пятницу
• Способы: банковская карта, Qiwi, ЮMoney`,
		money(s.AvailableBalance), money(s.PendingPayouts), minimum.String())
}

func insufficientText(available, minimum decimal.Decimal) string {
	return fmt.Sprintf("❌ Недостаточно средств для выплаты. Минимальная сумма: %s руб.\n\nДоступно: %s руб.", minimum.String(), money(available))
}

func methodName(m models.PaymentMethod) string {
	switch m {
	case models.MethodCard:
		return "банковскую карту"
	case models.MethodQiwi:
		return "Qiwi кошелёк"
	case models.MethodYooMoney:
		return "ЮMoney"
	default:
		return string(m)
	}
}

func payoutMethodText(m models.PaymentMethod, minimum decimal.Decimal) string {
	return fmt.Sprintf(`💳 Запрос выплаты

Вы выбрали: %s

Введите реквизиты для выплаты:
Для карты: номер карты
Для Qiwi: номер телефона
Для ЮMoney: номер кошелька

И сумму для вывода (от %s руб.):`, methodName(m), minimum.String())
}

func statusIcon(s models.PayoutStatus) string {
	switch s {
	case models.PayoutPending:
		return "🟡"
	case models.PayoutApproved:
		return "✅"
	case models.PayoutRejected:
		return "❌"
	case models.PayoutPaid:
		return "💰"
	default:
		return "⚪"
	}
}

func historyText(payouts []models.Payout) string {
	if len(payouts) == 0 {
		return "📋 История выплат\n\nЗаявки на выплаты отсутствуют."
	}
	var sb strings.Builder
	sb.WriteString("📋 История выплат\n\n")
	for _, p := range payouts {
		fmt.Fprintf(&sb, "%s %s руб. - %s\n", statusIcon(p.Status), money(p.Amount), p.Status)
		fmt.Fprintf(&sb, "Дата: %s\n", p.RequestedAt.Format(dateLayout))
		if p.ProcessedAt != nil {
			fmt.Fprintf(&sb, "Обработано: %s\n", p.ProcessedAt.Format(dateLayout))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// pendingText lists open requests; names maps owner ids to display names.
func pendingText(payouts []models.Payout, names map[int64]string) string {
	if len(payouts) == 0 {
		return "💰 Заявки на выплаты\n\nНет ожидающих заявок на выплаты."
	}
	var sb strings.Builder
	sb.WriteString("💰 Заявки на выплаты\n\n")
	for _, p := range payouts {
		name, ok := names[p.UserID]
		if !ok {
			name = fmt.Sprintf("%d", p.UserID)
		}
		fmt.Fprintf(&sb, "#%d - %s руб.\n", p.ID, money(p.Amount))
		fmt.Fprintf(&sb, "Пользователь: %s\n", name)
		fmt.Fprintf(&sb, "Метод: %s\n", p.PaymentMethod)
		fmt.Fprintf(&sb, "Дата: %s\n", p.RequestedAt.Format(dateLayout))
		fmt.Fprintf(&sb, "Реквизиты: %s\n\n", p.Details)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func newPayoutAdminText(user models.User, p *models.Payout) string {
	return fmt.Sprintf("🤑 Новая заявка на выплату!\n\nПользователь: %s (%d)\nСумма: %s руб.\nМетод: %s\nРеквизиты: %s",
		user.DisplayName(), user.TelegramID, money(p.Amount), p.PaymentMethod, p.Details)
}

func decisionUserText(p *models.Payout) string {
	if p.Status == models.PayoutApproved {
		return fmt.Sprintf("✅ Ваша заявка на выплату #%d на сумму %s руб. одобрена!\n\nОжидайте поступления средств в течение 1-3 рабочих дней.", p.ID, money(p.Amount))
	}
	return fmt.Sprintf("❌ Ваша заявка на выплату #%d на сумму %s руб. отклонена.\n\nПо вопросам обращайтесь в поддержку.", p.ID, money(p.Amount))
}

func decisionAdminText(p *models.Payout) string {
	if p.Status == models.PayoutApproved {
		return fmt.Sprintf("✅ Заявка #%d одобрена! Пользователь уведомлен.", p.ID)
	}
	return fmt.Sprintf("❌ Заявка #%d отклонена! Пользователь уведомлен.", p.ID)
}

func alreadyDecidedText(p *models.Payout) string {
	return fmt.Sprintf("ℹ️ Заявка #%d уже обработана, статус: %s", p.ID, p.Status)
}

func newReferralText(name string) string {
	return fmt.Sprintf("🎉 По вашей ссылке зарегистрировался новый партнёр: %s", name)
}

type adminSummary struct {
	Users     int64
	Signed    int64
	Referrals int64
	Pending   decimal.Decimal
}

func adminStatsText(s adminSummary) string {
	conversion := 0.0
	if s.Users > 0 {
		conversion = float64(s.Signed) / float64(s.Users) * 100
	}
	return fmt.Sprintf(`📈 Общая статистика

👥 Всего пользователей: %d
✅ Подписали соглашение: %d
📊 Конверсия: %.1f%%
🔗 Всего рефералов: %d
💰 Ожидает выплат: %s руб.`, s.Users, s.Signed, conversion, s.Referrals, money(s.Pending))
}

func cohortName(c models.Cohort) string {
	switch c {
	case models.CohortAll:
		return "👥 Все пользователи"
	case models.CohortSigned:
		return "✅ Подписавшие соглашение"
	case models.CohortUnsigned:
		return "❌ Неподписавшие"
	default:
		return "не выбраны"
	}
}

func recipientsText(all, signed, unsigned int64) string {
	return fmt.Sprintf(`👥 Выбор получателей

Статистика аудиторий:
• 👥 Все пользователи: %d чел.
• ✅ Подписавшие соглашение: %d чел.
• ❌ Неподписавшие: %d чел.

Выберите аудиторию для рассылки:`, all, signed, unsigned)
}

func cohortSelectedText(c models.Cohort, count int64) string {
	return fmt.Sprintf("✅ Выбраны получатели: %s\n\nКоличество: %d пользователей\n\nТеперь установите текст рассылки или начните отправку.", cohortName(c), count)
}

func textSavedText(snap broadcast.Snapshot) string {
	return fmt.Sprintf("✅ Текст рассылки сохранен!\n\nПолучатели: %s\nКоличество: %d пользователей\n\nТеперь вы можете начать рассылку.", cohortName(snap.Cohort), snap.Count)
}

func previewText(p broadcast.Preview) string {
	return fmt.Sprintf(`📢 Предпросмотр рассылки

Текст сообщения:
%s

Получатели: %s
Количество: %d пользователей

Вы уверены что хотите начать рассылку?`, p.Text, cohortName(p.Cohort), p.Count)
}

func sendStartedText(p broadcast.Preview) string {
	return fmt.Sprintf("🚀 Начинаем рассылку...\n\nПолучателей: %d\nТип: %s\nПрогресс: 0/%d (0%%)", p.Count, cohortName(p.Cohort), p.Count)
}

func progressText(p broadcast.Progress) string {
	return fmt.Sprintf("📤 Идет рассылка...\n\nПолучателей: %d\nОтправлено: %d/%d\nУспешно: %d\nОшибок: %d\nПрогресс: %.1f%%",
		p.Total, p.Attempted, p.Total, p.Succeeded, p.Failed, p.Percent())
}

func resultText(r *broadcast.Result) string {
	effectiveness := 0.0
	if r.Total > 0 {
		effectiveness = float64(r.Succeeded) / float64(r.Total) * 100
	}
	return fmt.Sprintf(`✅ Рассылка завершена!

📊 Результаты:
👥 Всего получателей: %d
✅ Успешно отправлено: %d
❌ Ошибок доставки: %d
📈 Эффективность: %.1f%%`, r.Total, r.Succeeded, r.Failed, effectiveness)
}

func broadcastErrorText(err error) string {
	switch {
	case errors.Is(err, broadcast.ErrEmptyText):
		return "❌ Сначала установите текст рассылки!"
	case errors.Is(err, broadcast.ErrNoRecipients):
		return "❌ Нет пользователей в выбранной аудитории!"
	case errors.Is(err, broadcast.ErrSendInProgress):
		return "⏳ Рассылка уже идет, дождитесь завершения."
	default:
		return textGenericError
	}
}

func debugUsersText(all, signed int64, first []models.User) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `🐞 Отладочная информация

📊 База данных:
• Всего пользователей: %d
• Подписавших соглашение: %d
• Неподписавших: %d

👥 Примеры пользователей:`, all, signed, all-signed)
	for i, u := range first {
		fmt.Fprintf(&sb, "\n%d. ID: %d, Имя: %s, Подписал: %t", i+1, u.TelegramID, u.FirstName, u.SignedAgreement)
	}
	return sb.String()
}

func debugBroadcastText(snap broadcast.Snapshot, all, signed, unsigned int64) string {
	text := snap.Text
	if text == "" {
		text = "не задан"
	}
	return fmt.Sprintf(`🐞 Отладочная информация рассылки

Состояние: %s
Текст: %s
Получатели: %s
Количество: %d

Статистика пользователей:
• Всего: %d
• Подписавшие: %d
• Неподписавшие: %d`, snap.Phase, text, cohortName(snap.Cohort), snap.Count, all, signed, unsigned)
}

const textAmountMissing = "❌ Не удалось найти сумму. Пожалуйста, введите сумму цифрами."

func payoutErrorText(err error, minimum decimal.Decimal) string {
	switch {
	case errors.Is(err, payout.ErrBelowMinimum):
		return fmt.Sprintf("❌ Минимальная сумма выплаты %s руб.", minimum.String())
	case errors.Is(err, payout.ErrInsufficientBalance):
		return "❌ Недостаточно средств для выплаты"
	case errors.Is(err, payout.ErrInvalidMethod):
		return "❌ Неизвестный способ выплаты. Выберите способ заново."
	default:
		return "❌ Произошла ошибка при обработке запроса"
	}
}
