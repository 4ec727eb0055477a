package bot

import (
	"context"
	"fmt"
	"quotecard/internal/card"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const sendSpinnerInterval = 3 * time.Second

func (b *Bot) sendTyping(ctx context.Context, chatID int64, action string) {
	config := tgbotapi.NewChatAction(chatID, action)
	_, err := b.rateLimiter.Request(config)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to send chat action",
			"error", err,
			"chatID", chatID,
			"action", action)
	}
}

func (b *Bot) withSpinner(ctx context.Context, chatID int64, action string, fn func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		b.sendTyping(ctx, chatID, action)

		t := time.NewTicker(sendSpinnerInterval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.sendTyping(ctx, chatID, action)
			}
		}
	}()

	return fn()
}

func (b *Bot) sendMessageWithKeyboard(
	chatID int64,
	text string,
	keyboard [][]tgbotapi.InlineKeyboardButton,
) (int, error) {
	message := tgbotapi.NewMessage(chatID, b.normalizeText(chatID, text))

	// See https://core.telegram.org/bots/api#markdownv2-style.
	message.ParseMode = tgbotapi.ModeMarkdownV2

	message.DisableWebPagePreview = true
	if len(keyboard) > 0 {
		message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}

	sent, err := b.rateLimiter.Send(message)

	return sent.MessageID, err
}

func (b *Bot) editMessageWithKeyboard(
	chatID int64,
	messageID int,
	text string,
	keyboard [][]tgbotapi.InlineKeyboardButton,
) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, b.normalizeText(chatID, text))
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	edit.DisableWebPagePreview = true

	if len(keyboard) > 0 {
		markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)
		edit.ReplyMarkup = &markup
	}

	_, err := b.rateLimiter.Send(edit)

	return err
}

func (b *Bot) sendPhoto(chatID int64, export card.Export, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: export.Filename, Bytes: export.Data})
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdownV2
	photo.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(b.actionKeyboard...)

	if _, err := b.rateLimiter.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}

	return nil
}

func (b *Bot) sendDocument(chatID int64, export card.Export, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: export.Filename, Bytes: export.Data})
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := b.rateLimiter.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}

	return nil
}

func (b *Bot) normalizeText(chatID int64, text string) string {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.Warn("Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	return normalizedText
}
