package bot

import (
	"quotecard/internal/templates"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackCard           = "card"
	callbackSummarize      = "summarize"
	callbackTemplate       = "template"
	callbackPreview        = "preview"
	callbackTemplatePrefix = "template_"

	templateKeyboardRowSize = 3
)

func getActionKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("🖼 Card", callbackCard),
			tgbotapi.NewInlineKeyboardButtonData("✨ Summarize", callbackSummarize),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("🎨 Template", callbackTemplate),
			tgbotapi.NewInlineKeyboardButtonData("👀 Preview", callbackPreview),
		},
	}
}

// getTemplateKeyboard marks the current template with a check.
func getTemplateKeyboard(current string) [][]tgbotapi.InlineKeyboardButton {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, tmpl := range templates.All() {
		label := tmpl.Name
		if tmpl.Key == current {
			label = "✅ " + label
		}

		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackTemplatePrefix+tmpl.Key))

		if len(row) == templateKeyboardRowSize {
			keyboard = append(keyboard, row)
			row = nil
		}
	}

	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}

	return keyboard
}
