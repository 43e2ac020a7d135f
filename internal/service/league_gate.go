package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
)

// LeagueGate не пускает изменения в закрытую лигу
type LeagueGate struct {
	leagues LeagueStore
	now     Clock
	logger  *zap.Logger
}

func NewLeagueGate(leagues LeagueStore, now Clock, logger *zap.Logger) *LeagueGate {
	return &LeagueGate{leagues: leagues, now: now, logger: logger}
}

// EnsureOpen возвращает LeagueClosedError с message, если лига закрыта.
// Открытая лига с прошедшей датой окончания закрывается здесь же.
// Матч без лиги (только турнир) проходит всегда.
func (g *LeagueGate) EnsureOpen(ctx context.Context, leagueID *uuid.UUID, message string) error {
	if leagueID == nil {
		return nil
	}

	league, err := g.leagues.GetByID(ctx, *leagueID)
	if err != nil {
		return fmt.Errorf("get league: %w", err)
	}
	if league == nil {
		return &NotFoundError{Entity: "league", ID: *leagueID}
	}

	if league.Status == model.LeagueStatusOpen && league.Ended(g.now()) {
		closed, err := g.leagues.CloseIfEnded(ctx, league.ID, g.now())
		if err != nil {
			return fmt.Errorf("close ended league: %w", err)
		}
		if closed {
			g.logger.Info("League closed after its end date",
				zap.String("league_id", league.ID.String()),
				zap.Timep("ends_at", league.EndsAt))
		}
		league.Status = model.LeagueStatusClosed
	}

	if league.Status == model.LeagueStatusClosed {
		return &LeagueClosedError{LeagueID: league.ID, Message: message}
	}
	return nil
}
