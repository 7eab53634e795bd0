package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/domain"
)

// Reply keyboard button labels. The router matches incoming message text
// against these, so they must stay in sync with mainKeyboard.
const (
	btnAddCase  = "➕ Add Case"
	btnMyCases  = "📋 My Cases"
	btnSettings = "⚙️ Settings"
	btnHelp     = "ℹ️ Help"
)

const (
	welcomeNew = "👋 Welcome! I track your legal case deadlines.\n\n" +
		"Every case gets a two-year deadline from its payment date, and I remind you " +
		"30 days, 7 days and 1 day before it runs out.\n\n" +
		"Tap ➕ Add Case to register your first case."
	welcomeBack = "👋 Welcome back! Use the menu below to manage your cases."

	helpText = "Here is what I can do:\n\n" +
		"➕ Add Case — register a case step by step (file number, accuser, defendant, payment date)\n" +
		"📋 My Cases — list your active cases and their deadlines\n" +
		"⚙️ Settings — timezone and notification preferences\n\n" +
		"Commands:\n" +
		"/start — restart the bot\n" +
		"/cancel — abandon the current form\n" +
		"/help — this message\n\n" +
		"Dates are entered as YYYY-MM-DD, e.g. 2023-05-14."

	textNoCases = "📭 You have no active cases. Tap ➕ Add Case to register one."

	textExpiredOnStart = "🧹 While you were away, %d of your case(s) passed their deadline and were marked expired."

	textCancelled       = "❌ Cancelled. Nothing was saved."
	textNothingToCancel = "There is nothing to cancel right now."
	textFinishFirst     = "⏳ Please finish or /cancel the current form first."
	textSlowDown        = "🐢 Too many messages. Give me a minute to catch up."
	textInternal        = "Something went wrong on my side. Please try again later."

	textSessionWarning = "⏰ Heads up: this form times out soon if left unfinished."

	textCaseSaved = "✅ Case saved!\n\n📁 File: %s\n⚖️ %s vs %s\n💰 Payment date: %s\n📅 Deadline: %s\n⏳ Days remaining: %d"

	textCaseDetailFmt = "📁 File: %s\n⚖️ Accuser: %s\n🛡 Defendant: %s\n💰 Payment date: %s\n📅 Deadline: %s\n⏳ Days remaining: %d"
	textCaseGone      = "This case no longer exists."
	textConfirmDelete = "Remove case %s? This cannot be undone."
	textCaseDeleted   = "🗑 Case removed."

	textSettingsFmt  = "⚙️ Settings\n\n🌍 Timezone: %s\n🔔 Notifications: %s"
	textPickTimezone = "Pick your timezone. It decides when a day counts as over:"
	textTimezoneSet  = "🌍 Timezone set to %s."
	textTimezoneAuto = "🌍 I guessed %s from your Telegram language. You can change it in ⚙️ Settings."
	textNotifOn      = "🔔 Notifications enabled."
	textNotifOff     = "🔕 Notifications disabled. You will get no deadline reminders."
)

// mainKeyboard is the persistent reply keyboard shown under the input box.
func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAddCase),
			tgbotapi.NewKeyboardButton(btnMyCases),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSettings),
			tgbotapi.NewKeyboardButton(btnHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// menuKeyboard is attached to scheduler notifications so the user can jump
// straight to the affected cases.
func menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 My Cases", cbListCases),
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", cbBackToMenu),
		),
	)
}

// caseListKeyboard renders one button per case. daysLeft is aligned with
// cases by index; entries where the day count could not be computed show
// the file number alone.
func caseListKeyboard(cases []domain.Case, daysLeft []int) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(cases)+1)
	for i, c := range cases {
		label := "📁 " + c.FileNumber
		if i < len(daysLeft) {
			if daysLeft[i] <= 7 {
				label += " ⚠️ DUE SOON"
			}
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbCaseDetail+":"+c.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", cbBackToMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func caseDetailKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit payment date", cbCaseEdit+":"+id),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Remove", cbCaseDelete+":"+id),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbListCases),
		),
	)
}

func confirmDeleteKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes, remove", cbCaseDeleteYes+":"+id),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Keep it", cbCaseDetail+":"+id),
		),
	)
}

func settingsKeyboard(notificationsEnabled bool) tgbotapi.InlineKeyboardMarkup {
	notif := "🔕 Disable notifications"
	if !notificationsEnabled {
		notif = "🔔 Enable notifications"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌍 Timezone", cbPickTimezone),
			tgbotapi.NewInlineKeyboardButtonData(notif, cbToggleNotif),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", cbBackToMenu),
		),
	)
}

func timezoneKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Africa/Addis_Ababa", cbSetTimezone+":Africa/Addis_Ababa"),
			tgbotapi.NewInlineKeyboardButtonData("Europe/London", cbSetTimezone+":Europe/London"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("America/New_York", cbSetTimezone+":America/New_York"),
			tgbotapi.NewInlineKeyboardButtonData("Asia/Dubai", cbSetTimezone+":Asia/Dubai"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("UTC", cbSetTimezone+":UTC"),
			tgbotapi.NewInlineKeyboardButtonData("🌐 Detect from language", cbAutoTimezone),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbSettings),
		),
	)
}
