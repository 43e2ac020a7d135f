package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlayerRepository struct {
	*base.Repository
}

func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{Repository: base.NewRepository(pool)}
}

// GetByID получает игрока по ID; nil, если игрока нет
func (r *PlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Player, error) {
	query := `SELECT id, name, telegram_id, is_admin FROM players WHERE id = $1`

	var p model.Player
	err := r.Q(ctx).QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.TelegramID, &p.IsAdmin)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get player by id: %w", err)
	}
	return &p, nil
}

// GetByTelegramID получает игрока по Telegram ID
func (r *PlayerRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.Player, error) {
	query := `SELECT id, name, telegram_id, is_admin FROM players WHERE telegram_id = $1`

	var p model.Player
	err := r.Q(ctx).QueryRow(ctx, query, telegramID).Scan(&p.ID, &p.Name, &p.TelegramID, &p.IsAdmin)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get player by telegram id: %w", err)
	}
	return &p, nil
}

// SetTelegramID привязывает Telegram чат к игроку
func (r *PlayerRepository) SetTelegramID(ctx context.Context, playerID uuid.UUID, telegramID int64) error {
	affected, err := r.ExecAffected(ctx, `UPDATE players SET telegram_id = $2 WHERE id = $1`, playerID, telegramID)
	if err != nil {
		return fmt.Errorf("set telegram id: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("player not found")
	}
	return nil
}

// ExpandParticipants раскрывает пары в игроков; id игроков возвращаются как есть
func (r *PlayerRepository) ExpandParticipants(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT p.id FROM players p WHERE p.id = ANY($1::uuid[])
		UNION
		SELECT unnest(ARRAY[pr.player1_id, pr.player2_id]) FROM pairs pr WHERE pr.id = ANY($1::uuid[])
	`

	rows, err := r.Q(ctx).Query(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("expand participants: %w", err)
	}
	defer rows.Close()

	var players []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		players = append(players, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("expand participants: %w", err)
	}

	return players, nil
}

// ListByIDs получает игроков по списку ID
func (r *PlayerRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Player, error) {
	query := `SELECT id, name, telegram_id, is_admin FROM players WHERE id = ANY($1::uuid[]) ORDER BY name`

	rows, err := r.Q(ctx).Query(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.TelegramID, &p.IsAdmin); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	return players, nil
}
