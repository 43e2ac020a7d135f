package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
)

// MessageSender часть *bot.Bot, которая нужна для отправки
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Directory находит игроков получателей; пара раскрывается в обоих игроков
type Directory interface {
	ExpandParticipants(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Player, error)
}

// TelegramSender отправляет уведомление каждому игроку с привязанным Telegram
type TelegramSender struct {
	bot       MessageSender
	directory Directory
	logger    *zap.Logger
}

func NewTelegramSender(b MessageSender, directory Directory, logger *zap.Logger) *TelegramSender {
	return &TelegramSender{bot: b, directory: directory, logger: logger}
}

func (s *TelegramSender) Send(ctx context.Context, n model.Notification) error {
	ids, err := s.directory.ExpandParticipants(ctx, n.Recipients)
	if err != nil {
		return fmt.Errorf("expand recipients: %w", err)
	}
	players, err := s.directory.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("list recipients: %w", err)
	}

	text := fmt.Sprintf("🎾 <b>%s</b>\n\n%s", html.EscapeString(n.Title), html.EscapeString(n.Message))

	var errs []error
	for _, p := range players {
		if p.TelegramID == nil {
			s.logger.Debug("Player has no linked Telegram, skipping",
				zap.String("player_id", p.ID.String()))
			continue
		}
		_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    *p.TelegramID,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("send to player %s: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}
