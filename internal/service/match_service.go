package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/base"
)

const (
	DefaultExpirationDays = 15
	DefaultAutoConfirm    = 48 * time.Hour
	defaultMaxRetries     = 3
	defaultSweepBatch     = 200
	retryBaseDelay        = 20 * time.Millisecond
)

type MatchConfig struct {
	ExpirationDays int
	AutoConfirm    time.Duration
	MaxRetries     uint64 // повторы транзакции при параллельной записи
	SweepBatch     int
}

func (c MatchConfig) withDefaults() MatchConfig {
	if c.ExpirationDays == 0 {
		c.ExpirationDays = DefaultExpirationDays
	}
	if c.AutoConfirm == 0 {
		c.AutoConfirm = DefaultAutoConfirm
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.SweepBatch == 0 {
		c.SweepBatch = defaultSweepBatch
	}
	return c
}

// MatchService жизненный цикл матча: создание, согласование даты, результат
type MatchService struct {
	repos    Repositories
	courts   *CourtService
	gate     *LeagueGate
	notifier Notifier
	rankings RankingUpdater
	cfg      MatchConfig
	now      Clock
	logger   *zap.Logger
}

func NewMatchService(
	repos Repositories,
	courts *CourtService,
	gate *LeagueGate,
	notifier Notifier,
	rankings RankingUpdater,
	cfg MatchConfig,
	now Clock,
	logger *zap.Logger,
) *MatchService {
	return &MatchService{
		repos:    repos,
		courts:   courts,
		gate:     gate,
		notifier: notifier,
		rankings: rankings,
		cfg:      cfg.withDefaults(),
		now:      now,
		logger:   logger,
	}
}

// effects то, что выполняется только после коммита
type effects struct {
	notifications []model.Notification
	recompute     []uuid.UUID
}

func (fx *effects) notify(title, message string, m *model.Match, recipients ...uuid.UUID) {
	if len(recipients) == 0 {
		recipients = m.Players[:]
	}
	fx.notifications = append(fx.notifications, model.Notification{
		Title:      title,
		Message:    message,
		Recipients: append([]uuid.UUID(nil), recipients...),
		Metadata: map[string]string{
			"match_id": m.ID.String(),
			"status":   string(m.Status),
		},
	})
}

// inTx выполняет fn в транзакции и повторяет её при параллельной записи.
// Уведомления и пересчёт таблицы выполняются после успешного коммита.
func (s *MatchService) inTx(ctx context.Context, fn func(ctx context.Context, fx *effects) error) error {
	var fx *effects
	backoff := retry.WithMaxRetries(s.cfg.MaxRetries, retry.NewExponential(retryBaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fx = &effects{}
		err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			return fn(ctx, fx)
		})
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	switch {
	case err == nil:
	case isRetryable(err):
		return &ConflictError{Message: "match was modified concurrently, please retry"}
	case errors.Is(err, base.ErrOverlap):
		return &ConflictError{Message: "court slot is already booked"}
	default:
		return err
	}

	s.afterCommit(ctx, fx)
	return nil
}

func (s *MatchService) afterCommit(ctx context.Context, fx *effects) {
	for _, categoryID := range fx.recompute {
		if s.rankings == nil {
			break
		}
		if err := s.rankings.RecomputeCategory(ctx, categoryID); err != nil {
			s.logger.Error("Failed to recompute standings",
				zap.String("category_id", categoryID.String()),
				zap.Error(err))
		}
	}
	for _, n := range fx.notifications {
		s.notifier.Notify(ctx, n)
	}
}

// mutate перечитывает матч в транзакции, применяет fn и сохраняет с проверкой версии.
// Закрытая лига отклоняет изменение до любой записи.
func (s *MatchService) mutate(ctx context.Context, id uuid.UUID, closedMsg string, fn func(ctx context.Context, m *model.Match, fx *effects) error) (*model.Match, error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.EnsureOpen(ctx, current.LeagueID, closedMsg); err != nil {
		return nil, err
	}

	var out *model.Match
	err = s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		m, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, m, fx); err != nil {
			return err
		}
		m.UpdatedAt = s.now()
		if err := s.repos.Matches.Update(ctx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MatchService) get(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	m, err := s.repos.Matches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	if m == nil {
		return nil, &NotFoundError{Entity: "match", ID: id}
	}
	return m, nil
}

// participantOf возвращает сторону матча, за которую играет actor:
// сам игрок или пара, в которую он входит
func (s *MatchService) participantOf(ctx context.Context, m *model.Match, actorID uuid.UUID) (uuid.UUID, bool, error) {
	if m.HasParticipant(actorID) {
		return actorID, true, nil
	}
	for _, p := range m.Players {
		members, err := s.repos.Players.ExpandParticipants(ctx, []uuid.UUID{p})
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("expand participant: %w", err)
		}
		for _, id := range members {
			if id == actorID {
				return p, true, nil
			}
		}
	}
	return uuid.Nil, false, nil
}

func (s *MatchService) requireParticipant(ctx context.Context, m *model.Match, actor model.Actor, action string) (uuid.UUID, error) {
	p, ok, err := s.participantOf(ctx, m, actor.ID)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, &ForbiddenError{Message: "only match participants can " + action}
	}
	return p, nil
}

func (s *MatchService) expiry() *time.Time {
	t := s.now().AddDate(0, 0, s.cfg.ExpirationDays)
	return &t
}

// resetToPending возвращает матч к согласованию даты с новым сроком
func (s *MatchService) resetToPending(m *model.Match) {
	m.Status = model.MatchStatusPending
	m.Proposal = nil
	m.ScheduledAt = nil
	m.Court = nil
	m.ExpiresAt = s.expiry()
}

type CreateMatchInput struct {
	CategoryID   uuid.UUID
	Players      []uuid.UUID
	ScheduledAt  *time.Time
	Court        *string
	TournamentID *uuid.UUID
}

// Create создаёт матч категории. С датой матч сразу назначен и ждёт подтверждения
// участников, без даты ждёт согласования до ExpiresAt.
func (s *MatchService) Create(ctx context.Context, actor model.Actor, in CreateMatchInput) (*model.Match, error) {
	if !actor.Admin {
		return nil, &ForbiddenError{Message: "only admins can create matches"}
	}
	if len(in.Players) != 2 {
		return nil, fieldError("players", "exactly two participants are required")
	}
	if in.Players[0] == in.Players[1] {
		return nil, fieldError("players", "participants must be different")
	}
	if in.Court != nil && in.ScheduledAt == nil {
		return nil, fieldError("court", "a court can only be set together with scheduled_at")
	}

	category, err := s.repos.Categories.GetByID(ctx, in.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, fieldError("category_id", "category %s does not exist", in.CategoryID)
	}
	for _, p := range in.Players {
		enrolled, err := s.repos.Categories.IsEnrolled(ctx, category.ID, p)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, fieldError("players", "participant %s is not enrolled in the category", p)
		}
	}

	if err := s.gate.EnsureOpen(ctx, category.LeagueID, "league is closed, new matches cannot be created"); err != nil {
		return nil, err
	}

	now := s.now()
	m := &model.Match{
		ID:           uuid.New(),
		CategoryID:   category.ID,
		LeagueID:     category.LeagueID,
		TournamentID: category.TournamentID,
		SeasonID:     category.SeasonID,
		Players:      [2]uuid.UUID{in.Players[0], in.Players[1]},
		Status:       model.MatchStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.TournamentID != nil {
		m.TournamentID = in.TournamentID
	}

	err = s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		c := m.Clone()
		if in.ScheduledAt == nil {
			c.ExpiresAt = s.expiry()
		} else {
			if err := s.schedule(ctx, c, *in.ScheduledAt, in.Court, nil); err != nil {
				return err
			}
		}

		if err := s.repos.Matches.Create(ctx, c); err != nil {
			return err
		}
		if _, err := s.courts.UpsertMatchReservation(ctx, c, actor.ID); err != nil {
			return err
		}

		if c.ScheduledAt != nil {
			fx.notify("New match scheduled",
				fmt.Sprintf("Your match is scheduled for %s on court %s. Please confirm.", s.when(*c.ScheduledAt), *c.Court), c)
		} else {
			fx.notify("New match", "A new match was created. Agree on a date with your opponent.", c)
		}
		m = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Match created",
		zap.String("match_id", m.ID.String()),
		zap.String("category_id", m.CategoryID.String()),
		zap.String("status", string(m.Status)))
	return m, nil
}

// schedule назначает дату и корт и открывает подтверждение расписания.
// Без явного корта он подбирается автоматически, начиная с preferred.
func (s *MatchService) schedule(ctx context.Context, m *model.Match, at time.Time, court, preferred *string) error {
	if err := s.courts.ValidateSlot(at, s.courts.SlotEnd(at)); err != nil {
		return err
	}
	if court == nil {
		assigned, err := s.courts.AutoAssignCourt(ctx, at, preferred, m.Contexts(), &m.ID)
		if err != nil {
			return err
		}
		court = &assigned
	}

	scheduledAt, c := at, *court
	m.Status = model.MatchStatusScheduled
	m.ScheduledAt = &scheduledAt
	m.Court = &c
	m.Proposal = nil
	m.ExpiresAt = nil
	m.ScheduleConfirmation = &model.ScheduleConfirmation{
		Status:    model.ConfirmationStatusPending,
		Responses: model.NewResponses(m.Players),
	}
	return nil
}

// MatchPatch административное изменение матча
type MatchPatch struct {
	ScheduledAt   *time.Time
	Court         *string
	ClearSchedule bool
	Players       *[2]uuid.UUID
}

// Update административная правка. Смена даты или корта заново открывает
// подтверждение расписания и перепроверяет бронь.
func (s *MatchService) Update(ctx context.Context, id uuid.UUID, actor model.Actor, patch MatchPatch) (*model.Match, error) {
	if !actor.Admin {
		return nil, &ForbiddenError{Message: "only admins can edit matches"}
	}

	return s.mutate(ctx, id, "league is closed, matches cannot be edited", func(ctx context.Context, m *model.Match, fx *effects) error {
		if m.IsTerminal() || m.Status == model.MatchStatusInReview {
			return validationf("match in status %s cannot be edited", m.Status)
		}

		if patch.Players != nil && *patch.Players != m.Players {
			if patch.Players[0] == patch.Players[1] {
				return fieldError("players", "participants must be different")
			}
			for _, p := range patch.Players {
				enrolled, err := s.repos.Categories.IsEnrolled(ctx, m.CategoryID, p)
				if err != nil {
					return err
				}
				if !enrolled {
					return fieldError("players", "participant %s is not enrolled in the category", p)
				}
			}
			m.Players = *patch.Players
			if m.ScheduleConfirmation != nil {
				m.ScheduleConfirmation.Responses = model.NewResponses(m.Players)
				m.ScheduleConfirmation.Status = model.ConfirmationStatusPending
			}
		}

		switch {
		case patch.ClearSchedule:
			s.resetToPending(m)
			m.ScheduleConfirmation = nil
			fx.notify("Match schedule cleared", "The match date was removed. Agree on a new date with your opponent.", m)
		case patch.ScheduledAt != nil || patch.Court != nil:
			at := m.ScheduledAt
			if patch.ScheduledAt != nil {
				at = patch.ScheduledAt
			}
			if at == nil {
				return fieldError("scheduled_at", "a date is required to assign a court")
			}
			timeChanged := m.ScheduledAt == nil || !m.ScheduledAt.Equal(*at)
			courtChanged := patch.Court != nil && (m.Court == nil || *m.Court != *patch.Court)
			if !timeChanged && !courtChanged {
				break
			}
			court := patch.Court
			if court == nil && !timeChanged {
				court = m.Court
			}
			if err := s.schedule(ctx, m, *at, court, m.Court); err != nil {
				return err
			}
			fx.notify("Match rescheduled",
				fmt.Sprintf("The match was moved to %s on court %s. Please confirm.", s.when(*m.ScheduledAt), *m.Court), m)
		}

		_, err := s.courts.UpsertMatchReservation(ctx, m, actor.ID)
		return err
	})
}

func (s *MatchService) Get(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	return s.get(ctx, id)
}

func (s *MatchService) List(ctx context.Context, f model.MatchFilter) ([]*model.Match, error) {
	matches, err := s.repos.Matches.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// Delete удаляет матч вместе с его бронью; завершённые матчи не удаляются
func (s *MatchService) Delete(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	if !actor.Admin {
		return &ForbiddenError{Message: "only admins can delete matches"}
	}
	current, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.gate.EnsureOpen(ctx, current.LeagueID, "league is closed, matches cannot be deleted"); err != nil {
		return err
	}

	err = s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		m, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		if m.Status == model.MatchStatusCompleted {
			return &ForbiddenError{Message: "completed matches cannot be deleted"}
		}
		if err := s.courts.CancelMatchReservation(ctx, m.ID, actor.ID); err != nil {
			return err
		}
		if err := s.repos.Matches.Delete(ctx, m.ID); err != nil {
			return fmt.Errorf("delete match: %w", err)
		}
		fx.notify("Match removed", "The match was removed by the club.", m)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Match deleted", zap.String("match_id", id.String()), zap.String("by", actor.ID.String()))
	return nil
}

func (s *MatchService) when(t time.Time) string {
	return t.In(s.courts.Location()).Format("Mon 02 Jan 15:04")
}
