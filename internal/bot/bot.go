package bot

import (
	"context"
	"log/slog"
	"quotecard/internal/card"
	"quotecard/internal/domain"
	"quotecard/internal/ratelimiter"
	"quotecard/internal/session"
	"quotecard/internal/summarizer"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxBackoffSeconds         = 60
	initialBackoffSeconds     = 3
	backoffGrowthFactor       = 2
	resetOffsetBackoffSeconds = 30
	updateProcessingTimeout   = 60 * time.Second

	BotUpdateTimeout = 60

	defaultMaxInputChars = 500
)

// SettingsStore persists the per-chat template choice.
type SettingsStore interface {
	GetChatSettingsWithDefault(ctx context.Context, chatID int64) (*domain.ChatSettings, error)
	UpsertChatSettings(ctx context.Context, chatSettings *domain.ChatSettings) error
}

// SourceResolver turns a link into text.
type SourceResolver interface {
	Resolve(ctx context.Context, rawURL string) (domain.Source, error)
}

type Dependencies struct {
	DB            SettingsStore
	Sessions      *session.Store
	Composer      *card.Composer
	Summarizer    summarizer.Summarizer
	Resolver      SourceResolver
	AllowedUsers  []int64
	MaxInputChars int
}

type Bot struct {
	api              *tgbotapi.BotAPI
	rateLimiter      *ratelimiter.RateLimiter
	db               SettingsStore
	sessions         *session.Store
	composer         *card.Composer
	summarizer       summarizer.Summarizer
	resolver         SourceResolver
	allowedUsers     []int64
	maxInputChars    int
	actionKeyboard   [][]tgbotapi.InlineKeyboardButton
	progressInterval time.Duration
	now              func() time.Time
	ctx              context.Context
	cancel           context.CancelFunc
	inflight         sync.WaitGroup
	started          atomic.Bool
	done             chan struct{}
	log              *slog.Logger
}

func New(token string, deps Dependencies, log *slog.Logger) (*Bot, error) {
	token = strings.TrimSpace(token)

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newBot(deps, ratelimiter.New(api, log), log)
	b.api = api

	return b, nil
}

func newBot(deps Dependencies, rateLimiter *ratelimiter.RateLimiter, log *slog.Logger) *Bot {
	ctx, cancel := context.WithCancel(context.Background())

	maxInputChars := deps.MaxInputChars
	if maxInputChars <= 0 {
		maxInputChars = defaultMaxInputChars
	}

	return &Bot{
		rateLimiter:      rateLimiter,
		db:               deps.DB,
		sessions:         deps.Sessions,
		composer:         deps.Composer,
		summarizer:       deps.Summarizer,
		resolver:         deps.Resolver,
		allowedUsers:     deps.AllowedUsers,
		maxInputChars:    maxInputChars,
		actionKeyboard:   getActionKeyboard(),
		progressInterval: progressEditInterval,
		now:              time.Now,
		ctx:              ctx,
		cancel:           cancel,
		done:             make(chan struct{}),
		log:              log,
	}
}

// Start polls for updates until ctx is done or Stop is called. It runs at
// most once per Bot.
func (b *Bot) Start(ctx context.Context) {
	if !b.started.CompareAndSwap(false, true) {
		return
	}
	defer close(b.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(b.ctx, cancel)()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = BotUpdateTimeout

	backoffSeconds := initialBackoffSeconds

	for {
		select {
		case <-ctx.Done():
			b.log.InfoContext(ctx, "Bot context is done",
				"error", ctx.Err())
			return
		default:
		}

		updates := b.api.GetUpdatesChan(updateConfig)
		updatesClosed := false

		for !updatesClosed {
			select {
			case <-ctx.Done():
				b.log.InfoContext(ctx, "Bot context is done",
					"error", ctx.Err())
				b.api.StopReceivingUpdates()
				return

			case update, ok := <-updates:
				if !ok {
					updatesClosed = true
					continue
				}
				updateConfig.Offset = update.UpdateID + 1

				b.handleUpdate(ctx, &update)
			}
		}

		if ctx.Err() != nil {
			return
		}

		b.log.WarnContext(ctx, "Update channel is closed, reconnecting...",
			"offset", updateConfig.Offset,
			"backoffSeconds", backoffSeconds)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(backoffSeconds) * time.Second):
		}

		backoffSeconds = updateBackoffSeconds(backoffSeconds)

		if backoffSeconds >= resetOffsetBackoffSeconds {
			updateConfig.Offset = 0
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil && update.Message.From != nil:
		chatID, chatType := chatContext(update.Message.Chat)

		userID := update.Message.From.ID
		if !b.userAllowed(userID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", userID,
				"chatID", chatID,
				"username", update.Message.From.UserName,
				"chatType", chatType)

			return
		}

		if err := b.handleMessage(updateCtx, update.Message); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"chatID", chatID,
				"userID", userID,
				"chatType", chatType,
				"messageID", update.Message.MessageID)
		}

	case update.CallbackQuery != nil:
		chatID := callbackChatID(update.CallbackQuery)

		if !b.userAllowed(update.CallbackQuery.From.ID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", update.CallbackQuery.From.ID,
				"chatID", chatID,
				"username", update.CallbackQuery.From.UserName,
				"data", update.CallbackQuery.Data)

			return
		}

		if err := b.handleCallbackQuery(updateCtx, update.CallbackQuery); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"chatID", chatID,
				"userID", update.CallbackQuery.From.ID,
				"data", update.CallbackQuery.Data,
				"messageID", callbackMessageID(update.CallbackQuery))
		}
	}
}

// session returns the chat session, restoring the persisted template the
// first time a chat is seen.
func (b *Bot) session(ctx context.Context, chatID int64) *session.Session {
	sess, created := b.sessions.Get(chatID)
	if !created || b.db == nil {
		return sess
	}

	settings, err := b.db.GetChatSettingsWithDefault(ctx, chatID)
	if err != nil {
		b.log.ErrorContext(ctx, "Failed to get chat settings with default",
			"error", err,
			"chatID", chatID)

		return sess
	}

	if err = sess.SetTemplate(settings.TemplateKey); err != nil {
		b.log.WarnContext(ctx, "Failed to restore chat template",
			"error", err,
			"chatID", chatID,
			"templateKey", settings.TemplateKey)
	}

	return sess
}

func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func chatContext(chat *tgbotapi.Chat) (int64, string) {
	if chat == nil {
		return 0, ""
	}

	return chat.ID, chat.Type
}

func callbackChatID(cb *tgbotapi.CallbackQuery) int64 {
	if cb != nil && cb.Message != nil && cb.Message.Chat != nil {
		return cb.Message.Chat.ID
	}

	return 0
}

func callbackMessageID(cb *tgbotapi.CallbackQuery) int {
	if cb != nil && cb.Message != nil {
		return cb.Message.MessageID
	}

	return 0
}

// Stop ends the update loop and in-flight summaries, waits for both and
// stops the outgoing queue.
func (b *Bot) Stop() {
	b.cancel()

	if b.started.Load() {
		<-b.done
	}
	b.inflight.Wait()

	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func updateBackoffSeconds(backoffSeconds int) int {
	if backoffSeconds < maxBackoffSeconds {
		backoffSeconds *= backoffGrowthFactor
		if backoffSeconds > maxBackoffSeconds {
			backoffSeconds = maxBackoffSeconds
		}
	}
	return backoffSeconds
}
