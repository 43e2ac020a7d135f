package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LeagueRepository struct {
	*base.Repository
}

func NewLeagueRepository(pool *pgxpool.Pool) *LeagueRepository {
	return &LeagueRepository{Repository: base.NewRepository(pool)}
}

// GetByID получает лигу по ID; nil, если лиги нет
func (r *LeagueRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.League, error) {
	query := `SELECT id, name, status, ends_at, closed_at FROM leagues WHERE id = $1`

	var l model.League
	err := r.Q(ctx).QueryRow(ctx, query, id).Scan(&l.ID, &l.Name, &l.Status, &l.EndsAt, &l.ClosedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get league by id: %w", err)
	}
	return &l, nil
}

// CloseIfEnded закрывает открытую лигу, дата окончания которой прошла.
// Повторный вызов ничего не меняет; true - лига закрыта именно этим вызовом.
func (r *LeagueRepository) CloseIfEnded(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE leagues
		SET status = 'closed', closed_at = $2
		WHERE id = $1 AND status = 'open' AND ends_at IS NOT NULL AND ends_at < $2
	`

	affected, err := r.ExecAffected(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("close league: %w", err)
	}
	return affected > 0, nil
}
