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

const blockColumns = `id, courts, starts_at, ends_at, context_type, context_id, notes, created_by, created_at`

type BlockRepository struct {
	*base.Repository
}

func NewBlockRepository(pool *pgxpool.Pool) *BlockRepository {
	return &BlockRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт блокировку кортов
func (r *BlockRepository) Create(ctx context.Context, b *model.CourtBlock) error {
	query := `
		INSERT INTO court_blocks (id, courts, starts_at, ends_at, context_type, context_id, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	courts := b.Courts
	if courts == nil {
		courts = []string{}
	}
	_, err := r.Q(ctx).Exec(
		ctx, query,
		b.ID, courts, b.StartsAt, b.EndsAt, b.ContextType, b.ContextID, b.Notes, b.CreatedBy, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create court block: %w", err)
	}
	return nil
}

func (r *BlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CourtBlock, error) {
	query := `SELECT ` + blockColumns + ` FROM court_blocks WHERE id = $1`

	b, err := scanBlock(r.Q(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get court block: %w", err)
	}
	return b, nil
}

func (r *BlockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM court_blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete court block: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("court block not found")
	}
	return nil
}

// ListOverlapping блокировки, пересекающие [start, end); пустой courts в строке - все корты
func (r *BlockRepository) ListOverlapping(ctx context.Context, start, end time.Time) ([]*model.CourtBlock, error) {
	query := `
		SELECT ` + blockColumns + `
		FROM court_blocks
		WHERE starts_at < $2 AND ends_at > $1
		ORDER BY starts_at
	`

	rows, err := r.Q(ctx).Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("list court blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*model.CourtBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan court block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list court blocks: %w", err)
	}

	return blocks, nil
}

func scanBlock(row scanner) (*model.CourtBlock, error) {
	var b model.CourtBlock
	err := row.Scan(
		&b.ID,
		&b.Courts,
		&b.StartsAt,
		&b.EndsAt,
		&b.ContextType,
		&b.ContextID,
		&b.Notes,
		&b.CreatedBy,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(b.Courts) == 0 {
		b.Courts = nil
	}
	return &b, nil
}
