package bot

import "github.com/go-telegram/bot/models"

const (
	callbackMenu        = "menu"
	callbackMenuHistory = "menu_history"
	callbackMenuHelp    = "menu_help"
)

func getReturnKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "⬅️ Return to menu", CallbackData: callbackMenu}},
		},
	}
}

func getMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "🕘 Recent summaries", CallbackData: callbackMenuHistory},
				{Text: "❔ Help", CallbackData: callbackMenuHelp},
			},
		},
	}
}
