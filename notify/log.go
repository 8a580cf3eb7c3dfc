package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender only logs messages. It is the sender when no channel is configured.
type LogSender struct {
	logger *zap.SugaredLogger
}

func NewLogSender(logger *zap.SugaredLogger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (Result, error) {
	s.logger.Infow("notification", "tokens", len(msg.Tokens), "title", msg.Title, "body", msg.Body, "data", msg.Data)
	return Result{SuccessCount: len(msg.Tokens)}, nil
}
