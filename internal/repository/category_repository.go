package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoryRepository struct {
	*base.Repository
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{Repository: base.NewRepository(pool)}
}

// GetByID получает категорию по ID; nil, если категории нет
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	query := `
		SELECT id, league_id, tournament_id, season_id, name, format, doubles
		FROM categories
		WHERE id = $1
	`

	var c model.Category
	err := r.Q(ctx).QueryRow(ctx, query, id).Scan(
		&c.ID, &c.LeagueID, &c.TournamentID, &c.SeasonID, &c.Name, &c.Format, &c.Doubles,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	return &c, nil
}

// IsEnrolled проверяет, записан ли участник (игрок или пара) в категорию
func (r *CategoryRepository) IsEnrolled(ctx context.Context, categoryID, participantID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM category_participants
			WHERE category_id = $1 AND participant_id = $2
		)
	`

	var enrolled bool
	if err := r.Q(ctx).QueryRow(ctx, query, categoryID, participantID).Scan(&enrolled); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return enrolled, nil
}
