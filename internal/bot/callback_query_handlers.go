package bot

import (
	"context"
	"errors"
	"fmt"
	"quotecard/internal/domain"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil || callback.Message.Chat == nil {
		return errors.New("callback message is missing")
	}

	chatID := callback.Message.Chat.ID

	return b.withSpinner(ctx, chatID, tgbotapi.ChatUploadPhoto, func() error {
		data := strings.TrimSpace(callback.Data)

		switch data {
		case callbackCard:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleCardAction(ctx, chatID)
			})
		case callbackSummarize:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleSummarizeAction(ctx, chatID)
			})
		case callbackTemplate:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handleTemplateCommand(ctx, chatID)
			})
		case callbackPreview:
			return b.withEmptyCallbackAnswer(callback, func() error {
				return b.handlePreviewCommand(ctx, chatID)
			})
		}

		if key, ok := strings.CutPrefix(data, callbackTemplatePrefix); ok {
			return b.handleTemplateQuery(ctx, key, callback)
		}

		return nil
	})
}

func (b *Bot) handleTemplateQuery(
	ctx context.Context,
	key string,
	callback *tgbotapi.CallbackQuery,
) error {
	chatID := callback.Message.Chat.ID
	sess := b.session(ctx, chatID)

	if err := sess.SetTemplate(key); err != nil {
		return b.errorCallbackAnswer(callback, fmt.Errorf("set template: %w", err))
	}

	if b.db != nil {
		if err := b.db.UpsertChatSettings(ctx, &domain.ChatSettings{
			ChatID:      chatID,
			TemplateKey: sess.TemplateKey(),
		}); err != nil {
			return b.errorCallbackAnswer(callback, fmt.Errorf("upsert chat settings: %w", err))
		}
	}

	if _, err := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "✅ Template is updated.")); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	if sess.Text() == "" {
		return nil
	}

	return b.sendPreview(ctx, chatID, sess)
}

func (b *Bot) withEmptyCallbackAnswer(
	callback *tgbotapi.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if _, err := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		errs = append(errs, b.errorCallbackAnswer(callback, fmt.Errorf("send request: %w", err)))
	}

	err := fn()
	if err != nil {
		errs = append(errs, fmt.Errorf("call fn: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) errorCallbackAnswer(
	callback *tgbotapi.CallbackQuery,
	err error,
) error {
	if _, sendErr := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "❌ Failed.")); sendErr != nil {
		return errors.Join(err, fmt.Errorf("send request: %w", sendErr))
	}
	return err
}
