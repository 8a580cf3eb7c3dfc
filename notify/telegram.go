package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// botAPI is the subset of *tgbotapi.BotAPI used here.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender treats push tokens as Telegram chat IDs.
type TelegramSender struct {
	bot    botAPI
	logger *zap.SugaredLogger
}

func NewTelegramSender(token string, logger *zap.SugaredLogger) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramSender{bot: bot, logger: logger}, nil
}

func (s *TelegramSender) Send(ctx context.Context, msg Message) (Result, error) {
	var res Result
	text := formatTelegram(msg)
	for _, tok := range msg.Tokens {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		chatID, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			res.FailureCount++
			s.logger.Warnw("invalid telegram chat id", "token", tok)
			continue
		}
		m := tgbotapi.NewMessage(chatID, text)
		m.DisableNotification = msg.Hint.Priority != "" && msg.Hint.Priority != "high"
		if _, err := s.bot.Send(m); err != nil {
			res.FailureCount++
			s.logger.Errorw("telegram send failed", "chat_id", chatID, "error", err)
			continue
		}
		res.SuccessCount++
	}
	return res, nil
}

func formatTelegram(msg Message) string {
	var b strings.Builder
	b.WriteString(msg.Title)
	if msg.Body != "" {
		b.WriteString("\n\n")
		b.WriteString(msg.Body)
	}
	if id := msg.Data["orderId"]; id != "" {
		b.WriteString("\n\nOrder: ")
		b.WriteString(id)
	}
	return b.String()
}
