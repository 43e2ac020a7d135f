package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reservationColumns = `
	id, court, starts_at, ends_at, status, type, match_id, participants::text[],
	created_by, created_at, cancelled_at, cancelled_by`

type ReservationRepository struct {
	*base.Repository
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{Repository: base.NewRepository(pool)}
}

// LockCourtDay берёт advisory lock на (корт, день) до конца транзакции.
// Все проверки пересечений для этого корта и дня после него сериализуются.
func (r *ReservationRepository) LockCourtDay(ctx context.Context, court string, day time.Time) error {
	key := fmt.Sprintf("court:%s:%s", court, day.Format(time.DateOnly))
	if _, err := r.Q(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("lock court day: %w", base.Translate(err))
	}
	return nil
}

// Create создаёт бронь; пересечение с активной бронью -> base.ErrOverlap
func (r *ReservationRepository) Create(ctx context.Context, res *model.CourtReservation) error {
	query := `
		INSERT INTO court_reservations
			(id, court, starts_at, ends_at, status, type, match_id, participants, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::uuid[], $9, $10)
	`

	_, err := r.Q(ctx).Exec(
		ctx, query,
		res.ID, res.Court, res.StartsAt, res.EndsAt, res.Status, res.Type, res.MatchID,
		uuidStrings(res.Participants), res.CreatedBy, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create reservation: %w", base.Translate(err))
	}
	return nil
}

// Update сохраняет корт, время, статус и участников брони
func (r *ReservationRepository) Update(ctx context.Context, res *model.CourtReservation) error {
	query := `
		UPDATE court_reservations
		SET court = $2, starts_at = $3, ends_at = $4, status = $5, participants = $6::uuid[],
		    cancelled_at = $7, cancelled_by = $8
		WHERE id = $1
	`

	affected, err := r.ExecAffected(
		ctx, query,
		res.ID, res.Court, res.StartsAt, res.EndsAt, res.Status, uuidStrings(res.Participants),
		res.CancelledAt, res.CancelledBy,
	)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reservation not found")
	}
	return nil
}

// GetByID получает бронь по ID; nil, если брони нет
func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CourtReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM court_reservations WHERE id = $1`

	res, err := scanReservation(r.Q(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation by id: %w", err)
	}
	return res, nil
}

// GetActiveByMatchID получает живую бронь матча
func (r *ReservationRepository) GetActiveByMatchID(ctx context.Context, matchID uuid.UUID) (*model.CourtReservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM court_reservations
		WHERE match_id = $1 AND status IN ('reserved', 'pre_reserved')
		LIMIT 1
	`

	res, err := scanReservation(r.Q(ctx).QueryRow(ctx, query, matchID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation by match: %w", err)
	}
	return res, nil
}

// ListActiveOverlapping активные брони корта, пересекающие [start, end)
func (r *ReservationRepository) ListActiveOverlapping(ctx context.Context, court string, start, end time.Time) ([]*model.CourtReservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM court_reservations
		WHERE court = $1
		  AND status IN ('reserved', 'pre_reserved')
		  AND starts_at < $3
		  AND ends_at > $2
		ORDER BY starts_at
	`
	return r.queryReservations(ctx, "list overlapping reservations", query, court, start, end)
}

// List брони по фильтрам в порядке начала
func (r *ReservationRepository) List(ctx context.Context, f model.ReservationFilter) ([]*model.CourtReservation, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Court != "" {
		where = append(where, "court = "+arg(f.Court))
	}
	if f.From != nil {
		where = append(where, "ends_at > "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "starts_at < "+arg(*f.To))
	}
	if f.MatchID != nil {
		where = append(where, "match_id = "+arg(*f.MatchID))
	}
	if !f.IncludeCancelled {
		where = append(where, "status IN ('reserved', 'pre_reserved')")
	}

	query := `SELECT ` + reservationColumns + ` FROM court_reservations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY starts_at, court"

	return r.queryReservations(ctx, "list reservations", query, args...)
}

func (r *ReservationRepository) queryReservations(ctx context.Context, op, query string, args ...any) ([]*model.CourtReservation, error) {
	rows, err := r.Q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var reservations []*model.CourtReservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return reservations, nil
}

func scanReservation(row scanner) (*model.CourtReservation, error) {
	var (
		res          model.CourtReservation
		participants []string
	)
	err := row.Scan(
		&res.ID,
		&res.Court,
		&res.StartsAt,
		&res.EndsAt,
		&res.Status,
		&res.Type,
		&res.MatchID,
		&participants,
		&res.CreatedBy,
		&res.CreatedAt,
		&res.CancelledAt,
		&res.CancelledBy,
	)
	if err != nil {
		return nil, err
	}

	res.Participants, err = parseUUIDs(participants)
	if err != nil {
		return nil, fmt.Errorf("parse participants: %w", err)
	}
	return &res, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
