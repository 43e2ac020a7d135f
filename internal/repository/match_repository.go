package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const matchColumns = `
	id, category_id, league_id, tournament_id, season_id, player1_id, player2_id, status,
	scheduled_at, court, proposal, schedule_confirmation, result, expires_at, version,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

type MatchRepository struct {
	*base.Repository
}

func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт матч с версией 1
func (r *MatchRepository) Create(ctx context.Context, m *model.Match) error {
	proposal, confirmation, result, err := encodeMatchDocs(m)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches (
			id, category_id, league_id, tournament_id, season_id, player1_id, player2_id, status,
			scheduled_at, court, proposal, schedule_confirmation, result, result_status,
			auto_confirm_at, expires_at, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1, $17, $17)
	`

	_, err = r.Q(ctx).Exec(
		ctx, query,
		m.ID, m.CategoryID, m.LeagueID, m.TournamentID, m.SeasonID, m.Players[0], m.Players[1], m.Status,
		m.ScheduledAt, m.Court, proposal, confirmation, result, m.ResultStatus(),
		autoConfirmAt(m), m.ExpiresAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create match: %w", base.Translate(err))
	}

	m.Version = 1
	m.UpdatedAt = m.CreatedAt
	return nil
}

// GetByID получает матч по ID; nil, если матча нет
func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m, err := scanMatch(r.Q(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get match by id: %w", err)
	}
	return m, nil
}

// Update сохраняет матч, если версия не изменилась с момента чтения
func (r *MatchRepository) Update(ctx context.Context, m *model.Match) error {
	proposal, confirmation, result, err := encodeMatchDocs(m)
	if err != nil {
		return err
	}

	query := `
		UPDATE matches
		SET player1_id = $3, player2_id = $4, status = $5, scheduled_at = $6, court = $7,
		    proposal = $8, schedule_confirmation = $9, result = $10, result_status = $11,
		    auto_confirm_at = $12, expires_at = $13, updated_at = $14, version = version + 1
		WHERE id = $1 AND version = $2
	`

	affected, err := r.ExecAffected(
		ctx, query,
		m.ID, m.Version, m.Players[0], m.Players[1], m.Status, m.ScheduledAt, m.Court,
		proposal, confirmation, result, m.ResultStatus(), autoConfirmAt(m), m.ExpiresAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update match %s: %w", m.ID, base.ErrStaleWrite)
	}

	m.Version++
	return nil
}

// Delete удаляет матч
func (r *MatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("match not found")
	}
	return nil
}

// List возвращает матчи по фильтрам, новые первыми
func (r *MatchRepository) List(ctx context.Context, f model.MatchFilter) ([]*model.Match, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CategoryID != nil {
		where = append(where, "m.category_id = "+arg(*f.CategoryID))
	}
	if f.LeagueID != nil {
		where = append(where, "m.league_id = "+arg(*f.LeagueID))
	}
	if f.Status != nil {
		where = append(where, "m.status = "+arg(*f.Status))
	}
	if f.ResultStatus != nil {
		where = append(where, "m.result_status = "+arg(*f.ResultStatus))
	}
	if f.PlayerID != nil {
		p := arg(*f.PlayerID)
		where = append(where, fmt.Sprintf(`(m.player1_id = %[1]s OR m.player2_id = %[1]s OR EXISTS (
			SELECT 1 FROM pairs p
			WHERE p.id IN (m.player1_id, m.player2_id) AND %[1]s IN (p.player1_id, p.player2_id)))`, p))
	}

	query := `SELECT ` + prefixed("m", matchColumns) + ` FROM matches m`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY m.created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	return r.queryMatches(ctx, "list matches", query, args...)
}

// ListExpired матчи без результата, у которых истёк срок согласования
func (r *MatchRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE status IN ('pending', 'proposed', 'scheduled')
		  AND result_status IN ('pending', 'rejected')
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`
	return r.queryMatches(ctx, "list expired matches", query, now, limit)
}

// ListAutoConfirmable матчи, результат которых пора подтвердить автоматически
func (r *MatchRepository) ListAutoConfirmable(ctx context.Context, now time.Time, limit int) ([]*model.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE result_status = 'in_review'
		  AND auto_confirm_at IS NOT NULL
		  AND auto_confirm_at <= $1
		ORDER BY auto_confirm_at
		LIMIT $2
	`
	return r.queryMatches(ctx, "list auto-confirmable matches", query, now, limit)
}

func (r *MatchRepository) queryMatches(ctx context.Context, op, query string, args ...any) ([]*model.Match, error) {
	rows, err := r.Q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var matches []*model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return matches, nil
}

func scanMatch(row scanner) (*model.Match, error) {
	var (
		m                              model.Match
		proposal, confirmation, result []byte
	)
	err := row.Scan(
		&m.ID,
		&m.CategoryID,
		&m.LeagueID,
		&m.TournamentID,
		&m.SeasonID,
		&m.Players[0],
		&m.Players[1],
		&m.Status,
		&m.ScheduledAt,
		&m.Court,
		&proposal,
		&confirmation,
		&result,
		&m.ExpiresAt,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeDoc(proposal, &m.Proposal); err != nil {
		return nil, fmt.Errorf("decode proposal: %w", err)
	}
	if err := decodeDoc(confirmation, &m.ScheduleConfirmation); err != nil {
		return nil, fmt.Errorf("decode schedule confirmation: %w", err)
	}
	if err := decodeDoc(result, &m.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &m, nil
}

func encodeMatchDocs(m *model.Match) (proposal, confirmation, result []byte, err error) {
	if proposal, err = encodeDoc(m.Proposal); err != nil {
		return nil, nil, nil, fmt.Errorf("encode proposal: %w", err)
	}
	if confirmation, err = encodeDoc(m.ScheduleConfirmation); err != nil {
		return nil, nil, nil, fmt.Errorf("encode schedule confirmation: %w", err)
	}
	if result, err = encodeDoc(m.Result); err != nil {
		return nil, nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return proposal, confirmation, result, nil
}

// encodeDoc кодирует вложенный документ в JSONB; nil указатель -> NULL
func encodeDoc[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func decodeDoc[T any](data []byte, dst **T) error {
	if len(data) == 0 {
		*dst = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

func autoConfirmAt(m *model.Match) *time.Time {
	if m.Result == nil {
		return nil
	}
	return m.Result.AutoConfirmAt
}

// prefixed добавляет алиас таблицы к списку колонок
func prefixed(alias, columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = alias + "." + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}
