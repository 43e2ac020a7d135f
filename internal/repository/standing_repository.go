package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StandingRepository struct {
	*base.Repository
}

func NewStandingRepository(pool *pgxpool.Pool) *StandingRepository {
	return &StandingRepository{Repository: base.NewRepository(pool)}
}

// Replace заменяет таблицу категории целиком одним батчем
func (r *StandingRepository) Replace(ctx context.Context, categoryID uuid.UUID, standings []model.Standing) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM category_standings WHERE category_id = $1`, categoryID)
	for _, s := range standings {
		batch.Queue(`
			INSERT INTO category_standings (
				category_id, participant_id, played, won, lost, sets_won, sets_lost,
				games_won, games_lost, points, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			categoryID, s.ParticipantID, s.Played, s.Won, s.Lost, s.SetsWon, s.SetsLost,
			s.GamesWon, s.GamesLost, s.Points, s.UpdatedAt,
		)
	}

	if err := r.Q(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("replace standings: %w", err)
	}
	return nil
}

// ListByCategory таблица категории: очки, затем разница сетов и геймов
func (r *StandingRepository) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.Standing, error) {
	query := `
		SELECT category_id, participant_id, played, won, lost, sets_won, sets_lost,
		       games_won, games_lost, points, updated_at
		FROM category_standings
		WHERE category_id = $1
		ORDER BY points DESC, (sets_won - sets_lost) DESC, (games_won - games_lost) DESC
	`

	rows, err := r.Q(ctx).Query(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	defer rows.Close()

	var standings []model.Standing
	for rows.Next() {
		var s model.Standing
		err := rows.Scan(
			&s.CategoryID, &s.ParticipantID, &s.Played, &s.Won, &s.Lost, &s.SetsWon, &s.SetsLost,
			&s.GamesWon, &s.GamesLost, &s.Points, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		standings = append(standings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}

	return standings, nil
}
