package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/auth"
	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/render"
	"github.com/Freeeeeet/club_league/internal/scoring"
)

const maxListedMatches = 10

// Players игроки, к которым привязывается Telegram
type Players interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Player, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.Player, error)
	SetTelegramID(ctx context.Context, playerID uuid.UUID, telegramID int64) error
}

type Matches interface {
	List(ctx context.Context, f model.MatchFilter) ([]*model.Match, error)
}

// Courts сетка кортов клуба
type Courts interface {
	Courts() []string
	Availability(ctx context.Context, date time.Time, court string) ([]model.SlotAvailability, error)
}

// BotController Telegram бот клуба: привязка аккаунта и список матчей.
// Уведомления о матчах отправляет notify.TelegramSender.
type BotController struct {
	bot      *bot.Bot
	players  Players
	matches  Matches
	courts   Courts
	tokens   *auth.Tokens
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	players Players,
	matches Matches,
	courts Courts,
	tokens *auth.Tokens,
	location *time.Location,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:      botInstance,
		players:  players,
		matches:  matches,
		courts:   courts,
		tokens:   tokens,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.reply(c.handleStart))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.reply(c.handleStart))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/link", bot.MatchTypePrefix, c.reply(c.handleLink))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/matches", bot.MatchTypeExact, c.reply(c.handleMatches))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/courts", bot.MatchTypePrefix, c.handleCourts)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Start"},
		{Command: "link", Description: "🔗 Link your club account"},
		{Command: "matches", Description: "🎾 My open matches"},
		{Command: "courts", Description: "📅 Court availability"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота; блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}

type command func(ctx context.Context, telegramID int64, text string) string

// reply оборачивает команду в обработчик go-telegram и отправляет ответ в чат
func (c *BotController) reply(cmd command) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}
		text := cmd(ctx, update.Message.From.ID, update.Message.Text)
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   text,
		})
		if err != nil {
			c.logger.Error("Failed to send reply",
				zap.Int64("chat_id", update.Message.Chat.ID),
				zap.Error(err))
		}
	}
}

func (c *BotController) handleStart(ctx context.Context, telegramID int64, _ string) string {
	player, err := c.players.GetByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get player", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return "❌ Something went wrong. Please try again later."
	}

	greeting := "👋 Welcome to the club league bot!"
	if player != nil {
		greeting = fmt.Sprintf("👋 Hi, %s!", player.Name)
	}
	return greeting + "\n\n" +
		"/link <code> - link your club account using the code from your profile\n" +
		"/matches - your open matches\n" +
		"/courts [YYYY-MM-DD] - court availability for a day\n\n" +
		"Once linked you will get match proposals, schedules and results here."
}

func (c *BotController) handleLink(ctx context.Context, telegramID int64, text string) string {
	fields := strings.Fields(text)
	if len(fields) != 2 || fields[0] != "/link" {
		return "Usage: /link <code>"
	}

	actor, err := c.tokens.Parse(fields[1])
	if err != nil {
		c.logger.Info("Rejected link code", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return "❌ This code is invalid or has expired. Get a new one from your club profile."
	}

	player, err := c.players.GetByID(ctx, actor.ID)
	if err == nil && player == nil {
		err = errors.New("player not found")
	}
	if err == nil {
		err = c.players.SetTelegramID(ctx, player.ID, telegramID)
	}
	if err != nil {
		c.logger.Error("Failed to link telegram account",
			zap.String("player_id", actor.ID.String()),
			zap.Int64("telegram_id", telegramID),
			zap.Error(err))
		return "❌ Could not link your account. Please try again later."
	}

	c.logger.Info("Telegram account linked",
		zap.String("player_id", player.ID.String()),
		zap.Int64("telegram_id", telegramID))
	return fmt.Sprintf("✅ Linked to %s. Match notifications will arrive here.", player.Name)
}

func (c *BotController) handleMatches(ctx context.Context, telegramID int64, _ string) string {
	player, err := c.players.GetByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get player", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return "❌ Something went wrong. Please try again later."
	}
	if player == nil {
		return "Your Telegram is not linked yet. Use /link <code>."
	}

	matches, err := c.matches.List(ctx, model.MatchFilter{PlayerID: &player.ID})
	if err != nil {
		c.logger.Error("Failed to list matches", zap.String("player_id", player.ID.String()), zap.Error(err))
		return "❌ Something went wrong. Please try again later."
	}

	var lines []string
	for _, m := range matches {
		if m.IsTerminal() {
			continue
		}
		if len(lines) == maxListedMatches {
			break
		}
		lines = append(lines, c.describe(m))
	}
	if len(lines) == 0 {
		return "🎾 You have no open matches."
	}
	return "🎾 Your open matches:\n\n" + strings.Join(lines, "\n")
}

func (c *BotController) describe(m *model.Match) string {
	short := m.ID.String()[:8]
	switch {
	case m.Status == model.MatchStatusScheduled && m.ScheduledAt != nil && m.Court != nil:
		return fmt.Sprintf("• %s: %s, court %s", short, m.ScheduledAt.In(c.location).Format("Mon 02 Jan 15:04"), *m.Court)
	case m.Status == model.MatchStatusProposed && m.Proposal != nil:
		return fmt.Sprintf("• %s: proposed for %s", short, m.Proposal.ProposedFor.In(c.location).Format("Mon 02 Jan 15:04"))
	case m.Status == model.MatchStatusInReview && m.Result != nil:
		return fmt.Sprintf("• %s: result %s awaiting confirmation", short, scoring.FormatScore(m.Result.Sets))
	case m.ExpiresAt != nil:
		return fmt.Sprintf("• %s: agree on a date before %s", short, m.ExpiresAt.In(c.location).Format("02 Jan"))
	default:
		return fmt.Sprintf("• %s: %s", short, m.Status)
	}
}

// handleCourts отправляет картинку занятости кортов на день
func (c *BotController) handleCourts(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	image, caption, err := c.courtDay(ctx, update.Message.Text)
	if err != nil {
		if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: err.Error()}); sendErr != nil {
			c.logger.Error("Failed to send reply", zap.Int64("chat_id", chatID), zap.Error(sendErr))
		}
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "courts.png", Data: bytes.NewReader(image)},
		Caption: caption,
	})
	if err != nil {
		c.logger.Error("Failed to send courts image", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// replyError ошибка, текст которой показывается пользователю
type replyError string

func (e replyError) Error() string { return string(e) }

// courtDay рисует день из "/courts [YYYY-MM-DD]"; ошибка содержит текст для пользователя
func (c *BotController) courtDay(ctx context.Context, text string) ([]byte, string, error) {
	now := c.now().In(c.location)
	day := now
	fields := strings.Fields(text)
	if len(fields) > 2 || (len(fields) > 0 && fields[0] != "/courts") {
		return nil, "", replyError("Usage: /courts [YYYY-MM-DD]")
	}
	if len(fields) == 2 {
		parsed, err := time.ParseInLocation(time.DateOnly, fields[1], c.location)
		if err != nil {
			return nil, "", replyError("Usage: /courts [YYYY-MM-DD]")
		}
		day = parsed
	}

	slots, err := c.courts.Availability(ctx, day, "")
	if err != nil {
		c.logger.Error("Failed to get court availability", zap.Time("day", day), zap.Error(err))
		return nil, "", replyError("❌ Something went wrong. Please try again later.")
	}

	image, err := render.CourtDayImage(day, c.courts.Courts(), slots, now)
	if err != nil {
		c.logger.Error("Failed to render court availability", zap.Time("day", day), zap.Error(err))
		return nil, "", replyError("❌ Something went wrong. Please try again later.")
	}

	free := 0
	for _, s := range slots {
		if s.State == model.SlotStateFree {
			free++
		}
	}
	return image, fmt.Sprintf("📅 %s: %d free slots", day.Format("Mon 02 Jan"), free), nil
}
