package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"quotecard/internal/domain"
	"quotecard/internal/templates"
	"strings"
)

// GetChatSettingsWithDefault returns the stored settings of a chat or the
// defaults when the chat has none.
func (d *Database) GetChatSettingsWithDefault(
	ctx context.Context,
	chatID int64,
) (*domain.ChatSettings, error) {
	query := `select chat_id, template_key
	from chat_settings
	where chat_id = ?`

	var cs domain.ChatSettings

	err := d.db.QueryRowContext(ctx, query, chatID).Scan(&cs.ChatID, &cs.TemplateKey)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ChatSettings{
			ChatID:      chatID,
			TemplateKey: templates.Default,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	cs.TemplateKey = strings.TrimSpace(cs.TemplateKey)
	if _, err = templates.Get(cs.TemplateKey); err != nil {
		d.log.WarnContext(ctx, "Stored template is unknown, using default",
			"error", err,
			"chatID", chatID,
			"templateKey", cs.TemplateKey)

		cs.TemplateKey = templates.Default
	}

	return &cs, nil
}

func (d *Database) UpsertChatSettings(ctx context.Context, chatSettings *domain.ChatSettings) error {
	key := strings.TrimSpace(chatSettings.TemplateKey)
	if _, err := templates.Get(key); err != nil {
		return fmt.Errorf("validate template: %w", err)
	}

	query := `insert into chat_settings (chat_id, template_key, updated_at)
	values (?, ?, unixepoch())
	on conflict (chat_id) do update
	set template_key = excluded.template_key,
	updated_at = excluded.updated_at`

	_, err := d.db.ExecContext(ctx, query, chatSettings.ChatID, key)

	return err
}
