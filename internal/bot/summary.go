package bot

import (
	"context"
	"errors"
	"fmt"
	"quotecard/internal/markdown"
	"quotecard/internal/relay"
	"quotecard/internal/session"
	"quotecard/internal/summarizer"
	"strings"
	"time"
)

const (
	progressEditInterval = 1500 * time.Millisecond

	summarizingText       = "✨ _Summarizing\\.\\.\\._"
	summaryText           = "✨ *Summary:*\n\n%s"
	summaryProgressText   = "✨ _Summarizing\\.\\.\\._\n\n%s"
	summarySupersededText = "⏹ Replaced by a newer request\\."
	summaryEmptyText      = "✖️ The summary came back empty\\. Try again\\."
	summaryTransportText  = "❌ Summary service is unavailable\\. Try again\\."
	summaryDisabledText   = "✖️ Summaries are not configured\\."
)

// handleSummarizeAction starts a summary of the session text in the
// background. A newer request cancels the one in flight.
func (b *Bot) handleSummarizeAction(ctx context.Context, chatID int64) error {
	sess := b.session(ctx, chatID)

	text := strings.TrimSpace(sess.Text())
	if text == "" {
		_, err := b.sendMessageWithKeyboard(chatID, emptyInputText, nil)
		return err
	}

	if b.summarizer == nil {
		_, err := b.sendMessageWithKeyboard(chatID, summaryDisabledText, nil)
		return err
	}

	if prev, ok := sess.Stream(); ok {
		b.log.InfoContext(ctx, "Summary request replaces an active one",
			"chatID", chatID,
			"previousTicket", prev.Ticket)
	}

	ticket, reqCtx := sess.BeginSummary(b.ctx)

	messageID, err := b.sendMessageWithKeyboard(chatID, summarizingText, nil)
	if err != nil {
		return errors.Join(fmt.Errorf("send message with keyboard: %w", err), sess.FailSummary(ticket))
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()

		b.runSummary(reqCtx, sess, ticket, chatID, messageID, text)
	}()

	return nil
}

func (b *Bot) runSummary(
	ctx context.Context,
	sess *session.Session,
	ticket session.Ticket,
	chatID int64,
	messageID int,
	text string,
) {
	start := b.now()

	var lastEdit time.Time
	var lastShown string

	progress := func(_ string, accumulated string) {
		if !sess.Progress(ticket, accumulated) {
			return
		}

		shown := strings.TrimSpace(accumulated)
		if shown == "" || shown == lastShown {
			return
		}

		if b.now().Sub(lastEdit) < b.progressInterval || !b.rateLimiter.Ready(chatID) {
			return
		}

		if err := b.editMessageWithKeyboard(
			chatID,
			messageID,
			fmt.Sprintf(summaryProgressText, markdown.Quote(shown)),
			nil,
		); err != nil {
			b.log.WarnContext(ctx, "Failed to edit progress message",
				"error", err,
				"chatID", chatID,
				"messageID", messageID)
		}

		lastEdit = b.now()
		lastShown = shown
	}

	summary, err := b.summarizer.Summarize(ctx, summarizer.Input{Text: text}, progress)
	if err != nil {
		b.finishFailedSummary(sess, ticket, chatID, messageID, err)
		return
	}

	if err = sess.ApplySummary(ticket, summary); err != nil {
		b.log.DebugContext(b.ctx, "Discarding stale summary",
			"error", err,
			"chatID", chatID,
			"ticket", ticket)

		b.editOrLog(chatID, messageID, summarySupersededText)

		return
	}

	b.log.InfoContext(b.ctx, "Summary is applied",
		"chatID", chatID,
		"ticket", ticket,
		"textLen", len(text),
		"summaryLen", len(summary),
		"durationMs", b.now().Sub(start).Milliseconds())

	b.editOrLog(chatID, messageID, fmt.Sprintf(summaryText, markdown.Quote(summary)))

	if err = b.sendPreview(b.ctx, chatID, sess); err != nil {
		b.log.ErrorContext(b.ctx, "Failed to send preview",
			"error", err,
			"chatID", chatID,
			"operation", "runSummary")
	}
}

// finishFailedSummary leaves the session text untouched and tells the user
// the summary can be retried.
func (b *Bot) finishFailedSummary(
	sess *session.Session,
	ticket session.Ticket,
	chatID int64,
	messageID int,
	err error,
) {
	if staleErr := sess.FailSummary(ticket); errors.Is(staleErr, session.ErrStale) {
		b.log.DebugContext(b.ctx, "Stale summary request ended",
			"error", err,
			"chatID", chatID,
			"ticket", ticket)

		b.editOrLog(chatID, messageID, summarySupersededText)

		return
	}

	b.log.ErrorContext(b.ctx, "Failed to summarize",
		"error", err,
		"chatID", chatID,
		"ticket", ticket)

	var transportErr *relay.TransportError

	text := failedText
	switch {
	case errors.Is(err, relay.ErrEmptyResult):
		text = summaryEmptyText
	case errors.As(err, &transportErr):
		text = summaryTransportText
	}

	if editErr := b.editMessageWithKeyboard(chatID, messageID, text, b.actionKeyboard); editErr != nil {
		b.log.WarnContext(b.ctx, "Failed to edit progress message",
			"error", editErr,
			"chatID", chatID,
			"messageID", messageID)
	}
}

func (b *Bot) editOrLog(chatID int64, messageID int, text string) {
	if err := b.editMessageWithKeyboard(chatID, messageID, text, nil); err != nil {
		b.log.WarnContext(b.ctx, "Failed to edit progress message",
			"error", err,
			"chatID", chatID,
			"messageID", messageID)
	}
}
