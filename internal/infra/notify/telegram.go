package notify

import (
	"context"
	"fmt"

	"github.com/Spok95/florist-stock/internal/domain/materials"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram пишет в админский чат.
type Telegram struct {
	api    sender
	chatID int64
}

// NewTelegram клиент общий с командным ботом.
func NewTelegram(api *tgbotapi.BotAPI, adminChatID int64) *Telegram {
	return &Telegram{api: api, chatID: adminChatID}
}

func (t *Telegram) LowStock(_ context.Context, items []materials.Material) error {
	if len(items) == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(t.chatID, lowStockText(items))
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
