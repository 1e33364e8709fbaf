package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mvolkov/accmarket-bot/internal/validation"
)

const (
	buttonAddFunds = "💰 Add Funds"
	buttonBuy      = "🛒 Buy Accounts"
	buttonBalance  = "📊 Check Balance"
	buttonStock    = "📦 Stock"
	buttonContact  = "📞 Contact"
)

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	menu := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonAddFunds),
			tgbotapi.NewKeyboardButton(buttonBuy),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonBalance),
			tgbotapi.NewKeyboardButton(buttonStock),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonContact),
		),
	)
	menu.ResizeKeyboard = true
	return menu
}

// quantityMenu — выбор количества аккаунтов, по четыре кнопки в ряд.
func quantityMenu() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 1; i <= validation.MaxPurchaseQuantity; i += 4 {
		var row []tgbotapi.InlineKeyboardButton
		for j := i; j < i+4 && j <= validation.MaxPurchaseQuantity; j++ {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d", j), fmt.Sprintf("buy_%d", j)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
