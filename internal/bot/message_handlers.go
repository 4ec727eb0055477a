package bot

import (
	"context"
	"errors"
	"fmt"
	"quotecard/internal/markdown"
	"quotecard/internal/source"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	return b.withSpinner(ctx, chatID, tgbotapi.ChatUploadPhoto, func() error {
		text := strings.TrimSpace(message.Text)
		if text == "" {
			text = strings.TrimSpace(message.Caption)
		}

		switch {
		case strings.HasPrefix(text, "/start"), strings.HasPrefix(text, "/help"):
			return b.handleStartCommand(chatID)
		case strings.HasPrefix(text, "/preview"):
			return b.handlePreviewCommand(ctx, chatID)
		case strings.HasPrefix(text, "/card"):
			return b.handleCardAction(ctx, chatID)
		case strings.HasPrefix(text, "/summarize"):
			return b.handleSummarizeAction(ctx, chatID)
		case strings.HasPrefix(text, "/template"):
			return b.handleTemplateCommand(ctx, chatID)
		default:
			return b.handleText(ctx, chatID, text)
		}
	})
}

// handleText stores the message as the working text of the chat. A message
// that is only a link is replaced by the text found behind it.
func (b *Bot) handleText(ctx context.Context, chatID int64, text string) error {
	if text == "" {
		_, err := b.sendMessageWithKeyboard(chatID, emptyInputText, nil)
		return err
	}

	if link, ok := source.FindURL(text); ok && b.resolver != nil {
		src, err := b.resolver.Resolve(ctx, link)
		if err != nil {
			errs := []error{fmt.Errorf("resolve source: %w", err)}

			if _, sendErr := b.sendMessageWithKeyboard(chatID, resolveFailedText, nil); sendErr != nil {
				errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
			}

			return errors.Join(errs...)
		}

		text = truncateRunes(src.Text, b.maxInputChars)

		title := src.Title
		if title == "" {
			title = link
		}

		if _, err = b.sendMessageWithKeyboard(
			chatID,
			fmt.Sprintf("🔗 Loaded text from *%s*\\.", markdown.EscapeV2(title)),
			nil,
		); err != nil {
			return fmt.Errorf("send message with keyboard: %w", err)
		}
	}

	if n := utf8.RuneCountInString(text); n > b.maxInputChars {
		_, err := b.sendMessageWithKeyboard(chatID, fmt.Sprintf(tooLongText, n, b.maxInputChars), nil)
		return err
	}

	sess := b.session(ctx, chatID)
	sess.SetText(text)

	return b.sendPreview(ctx, chatID, sess)
}

func truncateRunes(text string, limit int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)

	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
