package bot

import (
	"context"
	"errors"
	"fmt"
	"quotecard/internal/card"
	"quotecard/internal/markdown"
	"quotecard/internal/session"
	"quotecard/internal/templates"
	"unicode/utf8"
)

const welcomeText = `🖼 *Welcome to Quote Card\!*

Send me a piece of text or a link and I will lay it out as a quote card\.

– 🖼 *Card* renders the full\-size image as a file
– ✨ *Summarize* condenses the text into one golden sentence
– 🎨 *Template* switches between card styles
– /preview shows the last generated card`

const (
	emptyInputText    = "✏️ Send me some text first\\."
	tooLongText       = "✖️ Text is too long \\(%d/%d characters\\)\\."
	resolveFailedText = "❌ Could not load text from this link\\."
	failedText        = "❌ Failed\\."
)

func (b *Bot) handleStartCommand(chatID int64) error {
	_, err := b.sendMessageWithKeyboard(chatID, welcomeText, b.actionKeyboard)
	return err
}

// sendPreview composes the preview surface for the session text and sends
// it with the action keyboard.
func (b *Bot) sendPreview(ctx context.Context, chatID int64, sess *session.Session) error {
	text := sess.Text()

	tmpl, err := templates.Get(sess.TemplateKey())
	if err != nil {
		return fmt.Errorf("get template: %w", err)
	}

	surface, err := b.composer.Compose(text, tmpl, card.ModePreview)
	if errors.Is(err, card.ErrEmptyInput) {
		_, sendErr := b.sendMessageWithKeyboard(chatID, emptyInputText, nil)
		return sendErr
	}
	if err != nil {
		return fmt.Errorf("compose preview: %w", err)
	}
	defer func() {
		if err = surface.Close(); err != nil {
			b.log.WarnContext(ctx, "Failed to close surface",
				"error", err,
				"chatID", chatID,
				"operation", "sendPreview")
		}
	}()

	export, err := card.ExportPNG(surface, b.now())
	if err != nil {
		return fmt.Errorf("export preview: %w", err)
	}

	caption := fmt.Sprintf("👀 *%s* · %d/%d",
		markdown.EscapeV2(tmpl.Name),
		utf8.RuneCountInString(text),
		b.maxInputChars)

	return b.sendPhoto(chatID, export, caption)
}

func (b *Bot) handlePreviewCommand(ctx context.Context, chatID int64) error {
	sess := b.session(ctx, chatID)

	generated := sess.Card()
	if generated == nil || generated.Surface == nil {
		return b.sendPreview(ctx, chatID, sess)
	}

	thumb, err := card.ExportThumbnail(generated.Surface, b.now())
	if err != nil {
		return fmt.Errorf("export thumbnail: %w", err)
	}

	caption := fmt.Sprintf("🖼 Last card: `%s`", markdown.EscapeV2(generated.Export.Filename))

	return b.sendPhoto(chatID, thumb, caption)
}

// handleCardAction composes the full-resolution card, sends it as a file and
// keeps it as the session's generated card.
func (b *Bot) handleCardAction(ctx context.Context, chatID int64) error {
	sess := b.session(ctx, chatID)

	tmpl, err := templates.Get(sess.TemplateKey())
	if err != nil {
		return fmt.Errorf("get template: %w", err)
	}

	surface, err := b.composer.Compose(sess.Text(), tmpl, card.ModeFull)
	if errors.Is(err, card.ErrEmptyInput) {
		_, sendErr := b.sendMessageWithKeyboard(chatID, emptyInputText, nil)
		return sendErr
	}
	if err != nil {
		return fmt.Errorf("compose card: %w", err)
	}

	now := b.now()

	export, err := card.ExportPNG(surface, now)
	if err != nil {
		return errors.Join(fmt.Errorf("export card: %w", err), surface.Close())
	}

	if err = sess.SetCard(&session.GeneratedCard{
		Surface:     surface,
		Export:      export,
		TemplateKey: tmpl.Key,
		CreatedAt:   now,
	}); err != nil {
		b.log.WarnContext(ctx, "Failed to release previous card",
			"error", err,
			"chatID", chatID)
	}

	b.log.InfoContext(ctx, "Card is generated",
		"chatID", chatID,
		"templateKey", tmpl.Key,
		"filename", export.Filename,
		"width", surface.Width(),
		"height", surface.Height(),
		"lineCount", surface.Lines.LineCount(),
		"bytes", len(export.Data))

	return b.sendDocument(chatID, export, fmt.Sprintf("🖼 *%s*", markdown.EscapeV2(tmpl.Name)))
}

func (b *Bot) handleTemplateCommand(ctx context.Context, chatID int64) error {
	sess := b.session(ctx, chatID)

	_, err := b.sendMessageWithKeyboard(
		chatID,
		"🎨 *Choose a template:*",
		getTemplateKeyboard(sess.TemplateKey()),
	)

	return err
}
