package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"problems-service/internal/logging"
	"problems-service/internal/utils"
)

// TelegramForwarder pushes warning/error notifications into an operations
// chat, rate limited so a burst of failures cannot flood it.
type TelegramForwarder struct {
	bot     *bot.Bot
	chatID  int64
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewTelegramForwarder validates the token by constructing the bot once.
func NewTelegramForwarder(token string, chatID int64, ratePerSecond int, logger *logging.Logger) (*TelegramForwarder, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return &TelegramForwarder{
		bot:     b,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:  logger,
	}, nil
}

// Send forwards one notification, retrying transient failures.
func (f *TelegramForwarder) Send(ctx context.Context, notification Notification) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := fmt.Sprintf("*%s* [%s]\n%s", notification.Title, notification.Severity, notification.Message)

	return utils.Retry(f.logger, 3, time.Second, func() error {
		params := &bot.SendMessageParams{
			ChatID:    f.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := f.bot.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", f.chatID, err)
		}
		return nil
	})
}
