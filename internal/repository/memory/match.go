package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/base"
)

type MatchRepository struct {
	s *Store
}

func (r *MatchRepository) Create(ctx context.Context, m *model.Match) error {
	return r.s.write(ctx, func(d *data) error {
		if _, ok := d.matches[m.ID]; ok {
			return fmt.Errorf("create match: %w", base.ErrOverlap)
		}
		m.Version = 1
		m.UpdatedAt = m.CreatedAt
		d.matches[m.ID] = m.Clone()
		return nil
	})
}

func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	var m *model.Match
	r.s.read(func(d *data) {
		m = d.matches[id].Clone()
	})
	return m, nil
}

// Update сохраняет матч, если версия совпадает с сохранённой
func (r *MatchRepository) Update(ctx context.Context, m *model.Match) error {
	return r.s.write(ctx, func(d *data) error {
		cur, ok := d.matches[m.ID]
		if !ok || cur.Version != m.Version {
			return fmt.Errorf("update match %s: %w", m.ID, base.ErrStaleWrite)
		}
		m.Version++
		d.matches[m.ID] = m.Clone()
		return nil
	})
}

func (r *MatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(d *data) error {
		if _, ok := d.matches[id]; !ok {
			return fmt.Errorf("match not found")
		}
		delete(d.matches, id)
		for _, res := range d.reservations {
			if res.MatchID != nil && *res.MatchID == id {
				res.MatchID = nil
			}
		}
		return nil
	})
}

func (r *MatchRepository) List(ctx context.Context, f model.MatchFilter) ([]*model.Match, error) {
	var out []*model.Match
	r.s.read(func(d *data) {
		for _, m := range d.matches {
			if f.CategoryID != nil && m.CategoryID != *f.CategoryID {
				continue
			}
			if f.LeagueID != nil && (m.LeagueID == nil || *m.LeagueID != *f.LeagueID) {
				continue
			}
			if f.Status != nil && m.Status != *f.Status {
				continue
			}
			if f.ResultStatus != nil && m.ResultStatus() != *f.ResultStatus {
				continue
			}
			if f.PlayerID != nil && !d.involves(m, *f.PlayerID) {
				continue
			}
			out = append(out, m.Clone())
		}
	})

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Offset, f.Limit), nil
}

func (r *MatchRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Match, error) {
	var out []*model.Match
	r.s.read(func(d *data) {
		for _, m := range d.matches {
			switch m.Status {
			case model.MatchStatusPending, model.MatchStatusProposed, model.MatchStatusScheduled:
			default:
				continue
			}
			rs := m.ResultStatus()
			if rs != model.ResultStatusPending && rs != model.ResultStatusRejected {
				continue
			}
			if m.ExpiresAt == nil || m.ExpiresAt.After(now) {
				continue
			}
			out = append(out, m.Clone())
		}
	})

	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return page(out, 0, limit), nil
}

func (r *MatchRepository) ListAutoConfirmable(ctx context.Context, now time.Time, limit int) ([]*model.Match, error) {
	var out []*model.Match
	r.s.read(func(d *data) {
		for _, m := range d.matches {
			if m.ResultStatus() != model.ResultStatusInReview || m.Result.AutoConfirmAt == nil {
				continue
			}
			if m.Result.AutoConfirmAt.After(now) {
				continue
			}
			out = append(out, m.Clone())
		}
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Result.AutoConfirmAt.Before(*out[j].Result.AutoConfirmAt) })
	return page(out, 0, limit), nil
}

// involves: игрок участвует сам или в составе пары
func (d *data) involves(m *model.Match, playerID uuid.UUID) bool {
	for _, p := range m.Players {
		if p == playerID {
			return true
		}
		if pair, ok := d.pairs[p]; ok && (pair.PlayerIDs[0] == playerID || pair.PlayerIDs[1] == playerID) {
			return true
		}
	}
	return false
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
