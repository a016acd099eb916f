package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts admin-facing events (new submissions to review, contact
// messages) to a single chat.
type Telegram struct {
	bot    telegramSender
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Notify(ctx context.Context, ev Event) error {
	var text string
	switch ev.Kind {
	case SubmissionCreated:
		text = fmt.Sprintf("📥 New submission to review\nUser: %s (%s)\nReward: %s (%d pts)",
			ev.Name, ev.Username, ev.RewardTitle, ev.Points)
	case ContactReceived:
		from := "anonymous"
		if ev.Username != "" {
			from = ev.Username
		}
		text = fmt.Sprintf("✉️ New contact message from %s\nSubject: %s", from, ev.Subject)
	default:
		return nil
	}

	msg := tgbotapi.NewMessage(t.chatID, strings.TrimSpace(text))
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
