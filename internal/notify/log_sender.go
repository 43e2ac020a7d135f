package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
)

// LogSender пишет уведомления в лог; используется, когда Telegram не настроен
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, n model.Notification) error {
	recipients := make([]string, 0, len(n.Recipients))
	for _, id := range n.Recipients {
		recipients = append(recipients, id.String())
	}
	s.logger.Info("Notification",
		zap.String("title", n.Title),
		zap.String("message", n.Message),
		zap.Strings("recipients", recipients),
		zap.Any("metadata", n.Metadata))
	return nil
}
