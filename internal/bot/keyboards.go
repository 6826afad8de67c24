package bot

import (
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

func mainMenuKeyboard(signed bool) *telego.InlineKeyboardMarkup {
	if !signed {
		return tu.InlineKeyboard(
			tu.InlineKeyboardRow(tu.InlineKeyboardButton("📋 О нас").WithCallbackData("about")),
			tu.InlineKeyboardRow(tu.InlineKeyboardButton("💼 О партнёрке").WithCallbackData("partnership_info")),
			tu.InlineKeyboardRow(tu.InlineKeyboardButton("📝 Подписать соглашение").WithCallbackData("sign_agreement")),
		)
	}
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📊 Статистика").WithCallbackData("stats"),
			tu.InlineKeyboardButton("🔗 Реферальная ссылка").WithCallbackData("referral_link"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📄 Документы").WithCallbackData("documents"),
			tu.InlineKeyboardButton("💰 Выплаты").WithCallbackData("payouts"),
		),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🆘 Поддержка").WithCallbackData("support")),
	)
}

func agreementKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("✅ Подписать соглашение").WithCallbackData("confirm_agreement")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("❌ Отказаться").WithCallbackData("cancel_agreement")),
	)
}

func adminKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📢 Рассылка").WithCallbackData("broadcast")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📈 Общая статистика").WithCallbackData("admin_stats")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("💰 Заявки на выплаты").WithCallbackData("payout_requests")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🐞 Отладка рассылки").WithCallbackData("debug_broadcast")),
	)
}

func payoutsKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("💳 Запросить выплату").WithCallbackData("request_payout")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📋 История выплат").WithCallbackData("payout_history")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🔙 Назад").WithCallbackData("back_to_main")),
	)
}

func paymentMethodsKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("💳 Банковская карта").WithCallbackData("method_card")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🥝 Qiwi").WithCallbackData("method_qiwi")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("💰 ЮMoney").WithCallbackData("method_yoomoney")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🔙 Назад").WithCallbackData("back_to_payouts")),
	)
}

func broadcastKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📝 Текст рассылки").WithCallbackData("broadcast_text")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("👥 Получатели").WithCallbackData("broadcast_recipients")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🚀 Начать рассылку").WithCallbackData("broadcast_start")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🔙 Назад").WithCallbackData("back_to_admin")),
	)
}

func recipientsKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("👥 Все пользователи").WithCallbackData("recipients_all")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("✅ Подписавшие соглашение").WithCallbackData("recipients_signed")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("❌ Неподписавшие").WithCallbackData("recipients_unsigned")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🔙 Назад").WithCallbackData("broadcast")),
	)
}

func broadcastConfirmKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Подтвердить").WithCallbackData("broadcast_confirm"),
			tu.InlineKeyboardButton("❌ Отменить").WithCallbackData("broadcast_cancel"),
		),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🔙 Назад").WithCallbackData("broadcast")),
	)
}

func backKeyboard(target string) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🔙 Назад").WithCallbackData(target)),
	)
}

func payoutDecisionKeyboard(payoutID uint) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Одобрить").WithCallbackData(fmt.Sprintf("approve_%d", payoutID)),
			tu.InlineKeyboardButton("❌ Отклонить").WithCallbackData(fmt.Sprintf("reject_%d", payoutID)),
		),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("🔙 Назад").WithCallbackData("back_to_admin")),
	)
}
