package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
)

// Очки за матч
const (
	PointsWin          = 3
	PointsLoss         = 1
	PointsWalkoverLoss = 0
)

// StandingsService пересчитывает таблицу категории по завершённым матчам
type StandingsService struct {
	repos  Repositories
	now    Clock
	logger *zap.Logger
}

func NewStandingsService(repos Repositories, now Clock, logger *zap.Logger) *StandingsService {
	return &StandingsService{repos: repos, now: now, logger: logger}
}

// RecomputeCategory пересчитывает таблицу с нуля, поэтому повторный вызов безопасен
func (s *StandingsService) RecomputeCategory(ctx context.Context, categoryID uuid.UUID) error {
	status := model.MatchStatusCompleted
	matches, err := s.repos.Matches.List(ctx, model.MatchFilter{CategoryID: &categoryID, Status: &status})
	if err != nil {
		return fmt.Errorf("list completed matches: %w", err)
	}

	standings := Tally(categoryID, matches, s.now())
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repos.Standings.Replace(ctx, categoryID, standings)
	})
	if err != nil {
		return fmt.Errorf("replace standings: %w", err)
	}

	s.logger.Debug("Standings recomputed",
		zap.String("category_id", categoryID.String()),
		zap.Int("participants", len(standings)),
		zap.Int("matches", len(matches)))
	return nil
}

func (s *StandingsService) List(ctx context.Context, categoryID uuid.UUID) ([]model.Standing, error) {
	standings, err := s.repos.Standings.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	return standings, nil
}

// Tally считает таблицу по подтверждённым результатам. Супер тай-брейк
// идёт в сеты, но не в геймы.
func Tally(categoryID uuid.UUID, matches []*model.Match, now time.Time) []model.Standing {
	rows := make(map[uuid.UUID]*model.Standing)
	row := func(id uuid.UUID) *model.Standing {
		r, ok := rows[id]
		if !ok {
			r = &model.Standing{CategoryID: categoryID, ParticipantID: id, UpdatedAt: now}
			rows[id] = r
		}
		return r
	}

	for _, m := range matches {
		if m.Status != model.MatchStatusCompleted || m.ResultStatus() != model.ResultStatusConfirmed {
			continue
		}
		winnerIdx := m.ParticipantIndex(m.Result.Winner)
		if winnerIdx < 0 {
			continue
		}

		sides := [2]*model.Standing{row(m.Players[0]), row(m.Players[1])}
		for _, set := range m.Result.Sets {
			w := 0
			if set.Scores[1] > set.Scores[0] {
				w = 1
			}
			sides[w].SetsWon++
			sides[1-w].SetsLost++
			if !set.IsTieBreak {
				for i := range sides {
					sides[i].GamesWon += set.Scores[i]
					sides[i].GamesLost += set.Scores[1-i]
				}
			}
		}

		winner, loser := sides[winnerIdx], sides[1-winnerIdx]
		winner.Played++
		loser.Played++
		winner.Won++
		loser.Lost++
		winner.Points += PointsWin
		if m.Result.Walkover {
			loser.Points += PointsWalkoverLoss
		} else {
			loser.Points += PointsLoss
		}
	}

	out := make([]model.Standing, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.SetsWon-a.SetsLost != b.SetsWon-b.SetsLost {
			return a.SetsWon-a.SetsLost > b.SetsWon-b.SetsLost
		}
		if a.GamesWon-a.GamesLost != b.GamesWon-b.GamesLost {
			return a.GamesWon-a.GamesLost > b.GamesWon-b.GamesLost
		}
		return a.ParticipantID.String() < b.ParticipantID.String()
	})
	return out
}
