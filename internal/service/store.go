package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/club_league/internal/model"
)

// TxRunner открывает транзакцию хранилища; вложенные вызовы используют открытую
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type MatchStore interface {
	Create(ctx context.Context, m *model.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Match, error)
	Update(ctx context.Context, m *model.Match) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f model.MatchFilter) ([]*model.Match, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Match, error)
	ListAutoConfirmable(ctx context.Context, now time.Time, limit int) ([]*model.Match, error)
}

type ReservationStore interface {
	LockCourtDay(ctx context.Context, court string, day time.Time) error
	Create(ctx context.Context, res *model.CourtReservation) error
	Update(ctx context.Context, res *model.CourtReservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CourtReservation, error)
	GetActiveByMatchID(ctx context.Context, matchID uuid.UUID) (*model.CourtReservation, error)
	ListActiveOverlapping(ctx context.Context, court string, start, end time.Time) ([]*model.CourtReservation, error)
	List(ctx context.Context, f model.ReservationFilter) ([]*model.CourtReservation, error)
}

type BlockStore interface {
	Create(ctx context.Context, b *model.CourtBlock) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CourtBlock, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListOverlapping(ctx context.Context, start, end time.Time) ([]*model.CourtBlock, error)
}

type LeagueStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.League, error)
	CloseIfEnded(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type CategoryStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	IsEnrolled(ctx context.Context, categoryID, participantID uuid.UUID) (bool, error)
}

type PlayerStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Player, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.Player, error)
	SetTelegramID(ctx context.Context, playerID uuid.UUID, telegramID int64) error
	ExpandParticipants(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Player, error)
}

type StandingStore interface {
	Replace(ctx context.Context, categoryID uuid.UUID, standings []model.Standing) error
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Standing, error)
}

// Repositories набор хранилищ, общий для Postgres и памяти
type Repositories struct {
	Tx           TxRunner
	Matches      MatchStore
	Reservations ReservationStore
	Blocks       BlockStore
	Leagues      LeagueStore
	Categories   CategoryStore
	Players      PlayerStore
	Standings    StandingStore
}

// Notifier внешний канал уведомлений; вызов не блокирует и не возвращает ошибок
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// RankingUpdater пересчитывает таблицу категории после подтверждения результата
type RankingUpdater interface {
	RecomputeCategory(ctx context.Context, categoryID uuid.UUID) error
}

// Clock источник текущего времени
type Clock func() time.Time
