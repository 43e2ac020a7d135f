package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/club_league/internal/model"
)

type LeagueRepository struct {
	s *Store
}

func (r *LeagueRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.League, error) {
	var l *model.League
	r.s.read(func(d *data) {
		if v, ok := d.leagues[id]; ok {
			c := *v
			l = &c
		}
	})
	return l, nil
}

func (r *LeagueRepository) CloseIfEnded(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	var closed bool
	err := r.s.write(ctx, func(d *data) error {
		l, ok := d.leagues[id]
		if !ok || l.Status != model.LeagueStatusOpen || !l.Ended(now) {
			return nil
		}
		l.Status = model.LeagueStatusClosed
		l.ClosedAt = &now
		closed = true
		return nil
	})
	return closed, err
}

type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var c *model.Category
	r.s.read(func(d *data) {
		if v, ok := d.categories[id]; ok {
			cat := *v
			c = &cat
		}
	})
	return c, nil
}

func (r *CategoryRepository) IsEnrolled(ctx context.Context, categoryID, participantID uuid.UUID) (bool, error) {
	var ok bool
	r.s.read(func(d *data) {
		ok = d.enrolled[categoryID][participantID]
	})
	return ok, nil
}

type PlayerRepository struct {
	s *Store
}

func (r *PlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Player, error) {
	var p *model.Player
	r.s.read(func(d *data) {
		if v, ok := d.players[id]; ok {
			c := *v
			p = &c
		}
	})
	return p, nil
}

func (r *PlayerRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Player, error) {
	var p *model.Player
	r.s.read(func(d *data) {
		for _, v := range d.players {
			if v.TelegramID != nil && *v.TelegramID == telegramID {
				c := *v
				p = &c
				return
			}
		}
	})
	return p, nil
}

func (r *PlayerRepository) SetTelegramID(ctx context.Context, playerID uuid.UUID, telegramID int64) error {
	return r.s.write(ctx, func(d *data) error {
		p, ok := d.players[playerID]
		if !ok {
			return fmt.Errorf("player not found")
		}
		p.TelegramID = &telegramID
		return nil
	})
}

func (r *PlayerRepository) ExpandParticipants(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	r.s.read(func(d *data) {
		for _, id := range ids {
			if _, ok := d.players[id]; ok {
				add(id)
			}
			if pair, ok := d.pairs[id]; ok {
				add(pair.PlayerIDs[0])
				add(pair.PlayerIDs[1])
			}
		}
	})
	return out, nil
}

func (r *PlayerRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Player, error) {
	var out []*model.Player
	r.s.read(func(d *data) {
		for _, id := range ids {
			if v, ok := d.players[id]; ok {
				c := *v
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type StandingRepository struct {
	s *Store
}

func (r *StandingRepository) Replace(ctx context.Context, categoryID uuid.UUID, standings []model.Standing) error {
	return r.s.write(ctx, func(d *data) error {
		d.standings[categoryID] = append([]model.Standing(nil), standings...)
		return nil
	})
}

func (r *StandingRepository) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Standing, error) {
	var out []model.Standing
	r.s.read(func(d *data) {
		out = append(out, d.standings[categoryID]...)
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.SetsWon-a.SetsLost != b.SetsWon-b.SetsLost {
			return a.SetsWon-a.SetsLost > b.SetsWon-b.SetsLost
		}
		return a.GamesWon-a.GamesLost > b.GamesWon-b.GamesLost
	})
	return out, nil
}
