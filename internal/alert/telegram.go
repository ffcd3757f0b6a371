// Package alert posts moderation events to an admin Telegram chat.
// Delivery is best-effort; a failed alert is logged and dropped.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"

	"flashmeet/internal/config"
	"flashmeet/internal/logger"
)

// Notifier sends operational alerts through a Telegram bot.
type Notifier struct {
	bot    *telego.Bot
	chatID int64
}

// NewNotifier creates a Notifier from configuration. Returns (nil, nil)
// when the alert channel is disabled.
func NewNotifier(cfg *config.Config) (*Notifier, error) {
	if !cfg.Alert.Enabled {
		return nil, nil
	}
	if cfg.Alert.BotToken == "" || cfg.Alert.ChatID == 0 {
		return nil, fmt.Errorf("alert enabled but bot_token or chat_id is missing")
	}

	bot, err := telego.NewBot(cfg.Alert.BotToken, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("failed to create alert bot: %w", err)
	}

	return &Notifier{bot: bot, chatID: cfg.Alert.ChatID}, nil
}

// ContentRemoved reports that the report threshold deleted a piece of
// content.
func (n *Notifier) ContentRemoved(contentType, contentID string, reportCount int) {
	if n == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	text := fmt.Sprintf("Moderation: %s %s removed after %d reports", contentType, contentID, reportCount)
	_, err := n.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: n.chatID},
		Text:   text,
	})
	if err != nil {
		logger.Warningf("Failed to send moderation alert: %v", err)
	}
}
