package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/scoring"
)

// SweepReport итог одного прохода фоновой задачи
type SweepReport struct {
	Scanned   int `json:"scanned"`
	Walkovers int `json:"walkovers"`
	Expired   int `json:"expired"`
	Confirmed int `json:"confirmed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type sweepOutcome int

const (
	outcomeSkipped sweepOutcome = iota
	outcomeWalkover
	outcomeExpired
	outcomeConfirmed
)

func (r *SweepReport) add(o sweepOutcome) {
	switch o {
	case outcomeWalkover:
		r.Walkovers++
	case outcomeExpired:
		r.Expired++
	case outcomeConfirmed:
		r.Confirmed++
	default:
		r.Skipped++
	}
}

// ExpireOverdueMatches матчи без результата после ExpiresAt: техническая победа
// автору активного предложения, иначе матч истекает без результата.
// Ошибка по одному матчу не прерывает проход.
func (s *MatchService) ExpireOverdueMatches(ctx context.Context) (SweepReport, error) {
	matches, err := s.repos.Matches.ListExpired(ctx, s.now(), s.cfg.SweepBatch)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list expired matches: %w", err)
	}
	return s.sweep(ctx, "expiration", matches, s.expireMatch), nil
}

// AutoConfirmResults подтверждает результаты, не подтверждённые до AutoConfirmAt
func (s *MatchService) AutoConfirmResults(ctx context.Context) (SweepReport, error) {
	matches, err := s.repos.Matches.ListAutoConfirmable(ctx, s.now(), s.cfg.SweepBatch)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list auto-confirmable matches: %w", err)
	}
	return s.sweep(ctx, "auto-confirm", matches, s.autoConfirmMatch), nil
}

func (s *MatchService) sweep(ctx context.Context, name string, matches []*model.Match, process func(ctx context.Context, id uuid.UUID) (sweepOutcome, error)) SweepReport {
	report := SweepReport{Scanned: len(matches)}
	for _, m := range matches {
		if ctx.Err() != nil {
			break
		}
		outcome, err := process(ctx, m.ID)
		if err != nil {
			report.Failed++
			s.logger.Error("Sweep failed for match",
				zap.String("sweep", name),
				zap.String("match_id", m.ID.String()),
				zap.Error(err))
			continue
		}
		report.add(outcome)
	}

	if report.Scanned > 0 {
		s.logger.Info("Sweep finished",
			zap.String("sweep", name),
			zap.Int("scanned", report.Scanned),
			zap.Int("walkovers", report.Walkovers),
			zap.Int("expired", report.Expired),
			zap.Int("confirmed", report.Confirmed),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed))
	}
	return report
}

// expireMatch перепроверяет условия в транзакции: матч мог измениться после выборки
func (s *MatchService) expireMatch(ctx context.Context, id uuid.UUID) (sweepOutcome, error) {
	outcome := outcomeSkipped
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		outcome = outcomeSkipped
		m, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		if !s.overdue(m) {
			return nil
		}

		if p := m.Proposal; p != nil && p.Status == model.ProposalStatusPending && m.HasParticipant(p.RequestedBy) {
			if err := s.assignWalkover(ctx, m, p.RequestedBy, fx); err != nil {
				return err
			}
			outcome = outcomeWalkover
		} else {
			m.Status = model.MatchStatusExpired
			m.ExpiresAt = nil
			m.Court = nil
			fx.notify("Match expired", "The match expired because no date was agreed in time. No points were awarded.", m)
			outcome = outcomeExpired
		}

		if _, err := s.courts.UpsertMatchReservation(ctx, m, uuid.Nil); err != nil {
			return err
		}
		m.UpdatedAt = s.now()
		return s.repos.Matches.Update(ctx, m)
	})
	return outcome, err
}

func (s *MatchService) overdue(m *model.Match) bool {
	switch m.Status {
	case model.MatchStatusPending, model.MatchStatusProposed, model.MatchStatusScheduled:
	default:
		return false
	}
	rs := m.ResultStatus()
	if rs != model.ResultStatusPending && rs != model.ResultStatusRejected {
		return false
	}
	return m.ExpiresAt != nil && !m.ExpiresAt.After(s.now())
}

// assignWalkover техническая победа winner со счётом GamesPerSet-0 в каждом сете
func (s *MatchService) assignWalkover(ctx context.Context, m *model.Match, winner uuid.UUID, fx *effects) error {
	code := ""
	category, err := s.repos.Categories.GetByID(ctx, m.CategoryID)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if category != nil {
		code = category.Format
	}
	format, err := scoring.Lookup(code)
	if err != nil {
		return fmt.Errorf("category %s: %w", m.CategoryID, err)
	}

	now := s.now()
	m.Result = &model.Result{
		Winner:     winner,
		Sets:       format.Walkover(m.ParticipantIndex(winner)),
		Notes:      "walkover: the opponent did not answer the proposal in time",
		ReportedBy: winner,
		ReportedAt: now,
		Walkover:   true,
	}
	m.Court = nil
	s.confirm(m, nil, &effects{})

	fx.recompute = append(fx.recompute, m.CategoryID)
	fx.notify("Walkover",
		fmt.Sprintf("The proposal was not answered before the deadline. Walkover %s awarded to the proposer.",
			scoring.FormatScore(m.Result.Sets)), m)
	return nil
}

func (s *MatchService) autoConfirmMatch(ctx context.Context, id uuid.UUID) (sweepOutcome, error) {
	outcome := outcomeSkipped
	err := s.inTx(ctx, func(ctx context.Context, fx *effects) error {
		outcome = outcomeSkipped
		m, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		if m.ResultStatus() != model.ResultStatusInReview || m.Result.AutoConfirmAt == nil ||
			m.Result.AutoConfirmAt.After(s.now()) {
			return nil
		}

		s.confirm(m, nil, fx)
		if _, err := s.courts.UpsertMatchReservation(ctx, m, uuid.Nil); err != nil {
			return err
		}
		m.UpdatedAt = s.now()
		if err := s.repos.Matches.Update(ctx, m); err != nil {
			return err
		}
		outcome = outcomeConfirmed
		return nil
	})
	return outcome, err
}
