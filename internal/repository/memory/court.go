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

type ReservationRepository struct {
	s *Store
}

// LockCourtDay не нужен: транзакции в памяти и так сериализованы
func (r *ReservationRepository) LockCourtDay(ctx context.Context, court string, day time.Time) error {
	return nil
}

func (r *ReservationRepository) Create(ctx context.Context, res *model.CourtReservation) error {
	return r.s.write(ctx, func(d *data) error {
		if err := d.checkReservation(res); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		d.reservations[res.ID] = res.Clone()
		return nil
	})
}

func (r *ReservationRepository) Update(ctx context.Context, res *model.CourtReservation) error {
	return r.s.write(ctx, func(d *data) error {
		cur, ok := d.reservations[res.ID]
		if !ok {
			return fmt.Errorf("reservation not found")
		}
		if err := d.checkReservation(res); err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}
		updated := res.Clone()
		updated.Type = cur.Type
		updated.MatchID = cur.MatchID
		updated.CreatedBy = cur.CreatedBy
		updated.CreatedAt = cur.CreatedAt
		d.reservations[res.ID] = updated
		return nil
	})
}

// checkReservation повторяет ограничения таблицы court_reservations
func (d *data) checkReservation(res *model.CourtReservation) error {
	if !res.IsActive() {
		return nil
	}
	for _, other := range d.reservations {
		if other.ID == res.ID || !other.IsActive() {
			continue
		}
		if other.Court == res.Court && other.Overlaps(res.StartsAt, res.EndsAt) {
			return base.ErrOverlap
		}
		if res.MatchID != nil && other.MatchID != nil && *other.MatchID == *res.MatchID {
			return base.ErrOverlap
		}
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CourtReservation, error) {
	var res *model.CourtReservation
	r.s.read(func(d *data) {
		res = d.reservations[id].Clone()
	})
	return res, nil
}

func (r *ReservationRepository) GetActiveByMatchID(ctx context.Context, matchID uuid.UUID) (*model.CourtReservation, error) {
	var res *model.CourtReservation
	r.s.read(func(d *data) {
		for _, v := range d.reservations {
			if v.IsActive() && v.MatchID != nil && *v.MatchID == matchID {
				res = v.Clone()
				return
			}
		}
	})
	return res, nil
}

func (r *ReservationRepository) ListActiveOverlapping(ctx context.Context, court string, start, end time.Time) ([]*model.CourtReservation, error) {
	return r.List(ctx, model.ReservationFilter{Court: court, From: &start, To: &end})
}

func (r *ReservationRepository) List(ctx context.Context, f model.ReservationFilter) ([]*model.CourtReservation, error) {
	var out []*model.CourtReservation
	r.s.read(func(d *data) {
		for _, res := range d.reservations {
			if f.Court != "" && res.Court != f.Court {
				continue
			}
			if f.From != nil && !res.EndsAt.After(*f.From) {
				continue
			}
			if f.To != nil && !res.StartsAt.Before(*f.To) {
				continue
			}
			if f.MatchID != nil && (res.MatchID == nil || *res.MatchID != *f.MatchID) {
				continue
			}
			if !f.IncludeCancelled && !res.IsActive() {
				continue
			}
			out = append(out, res.Clone())
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].Court < out[j].Court
	})
	return out, nil
}

type BlockRepository struct {
	s *Store
}

func (r *BlockRepository) Create(ctx context.Context, b *model.CourtBlock) error {
	return r.s.write(ctx, func(d *data) error {
		d.blocks[b.ID] = b.Clone()
		return nil
	})
}

func (r *BlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CourtBlock, error) {
	var b *model.CourtBlock
	r.s.read(func(d *data) {
		b = d.blocks[id].Clone()
	})
	return b, nil
}

func (r *BlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(d *data) error {
		if _, ok := d.blocks[id]; !ok {
			return fmt.Errorf("court block not found")
		}
		delete(d.blocks, id)
		return nil
	})
}

func (r *BlockRepository) ListOverlapping(ctx context.Context, start, end time.Time) ([]*model.CourtBlock, error) {
	var out []*model.CourtBlock
	r.s.read(func(d *data) {
		for _, b := range d.blocks {
			if b.Overlaps(start, end) {
				out = append(out, b.Clone())
			}
		}
	})

	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}
