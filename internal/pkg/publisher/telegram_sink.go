package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// Telegram's bot API allows roughly 30 messages/minute to one chat.
const telegramSendInterval = 2 * time.Second

// TelegramSink sends human-readable alerts to a chat, gated by the send
// interval above; queuing is the publisher's job, not the sink's.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	mu       sync.Mutex
	lastSend time.Time
}

func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("publisher: creating telegram bot: %w", err)
	}
	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("publisher: verifying telegram bot: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Send(ctx context.Context, event models.Event) error {
	s.mu.Lock()
	wait := telegramSendInterval - time.Since(s.lastSend)
	s.mu.Unlock()
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	msg := tgbotapi.NewMessage(s.chatID, formatEvent(event))
	_, err := s.bot.Send(msg)

	s.mu.Lock()
	s.lastSend = time.Now()
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("publisher: sending telegram message: %w", err)
	}
	return nil
}

func formatEvent(e models.Event) string {
	switch e.Kind {
	case models.EventArbitrageNew:
		return fmt.Sprintf("New arbitrage: match %s, bet type %d, margin %g, profit %s%%", e.MatchID, e.BetTypeID, e.Margin, e.ProfitPercent)
	case models.EventArbitrageExpired:
		return fmt.Sprintf("Arbitrage closed: match %s, bet type %d, margin %g", e.MatchID, e.BetTypeID, e.Margin)
	case models.EventOddsUpdate:
		return fmt.Sprintf("Line moved: match %s, bet type %d, margin %g, selection %s", e.MatchID, e.BetTypeID, e.Margin, e.Selection)
	default:
		return fmt.Sprintf("%s: match %s, bet type %d", e.Kind, e.MatchID, e.BetTypeID)
	}
}
