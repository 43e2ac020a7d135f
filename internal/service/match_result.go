package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/scoring"
)

type ReportResultInput struct {
	WinnerID uuid.UUID
	Sets     []model.SetScore
	Score    string // альтернатива Sets: "6-4 3-6 10-7"
	Notes    string
}

// ReportResult сообщает результат. Администратор подтверждает его сразу,
// результат участника ждёт подтверждения соперника до AutoConfirmAt.
func (s *MatchService) ReportResult(ctx context.Context, id uuid.UUID, actor model.Actor, in ReportResultInput) (*model.Match, error) {
	m, err := s.mutate(ctx, id, "league is closed, results cannot be reported", func(ctx context.Context, m *model.Match, fx *effects) error {
		switch {
		case m.Status == model.MatchStatusExpired:
			return validationf("match has expired")
		case m.Status == model.MatchStatusCompleted:
			return validationf("match result is already confirmed")
		case m.Status == model.MatchStatusInReview && !actor.Admin:
			return validationf("match result is already awaiting confirmation")
		}

		reporter := actor.ID
		if !actor.Admin {
			p, err := s.requireParticipant(ctx, m, actor, "report the result")
			if err != nil {
				return err
			}
			reporter = p
		}

		winnerIdx := m.ParticipantIndex(in.WinnerID)
		if winnerIdx < 0 {
			return fieldError("winner_id", "winner must be one of the match participants")
		}

		outcome, err := s.validateScore(ctx, m, in)
		if err != nil {
			return err
		}
		if outcome.WinnerIndex != winnerIdx {
			return fieldError("winner_id", "declared winner does not match the reported sets")
		}

		now := s.now()
		m.Result = &model.Result{
			Winner:     in.WinnerID,
			Sets:       outcome.Sets,
			Notes:      strings.TrimSpace(in.Notes),
			Responses:  model.NewResponses(m.Players),
			ReportedBy: actor.ID,
			ReportedAt: now,
		}
		m.ExpiresAt = nil
		if m.Proposal != nil && m.Proposal.Status == model.ProposalStatusPending {
			m.Proposal = nil
		}
		if m.ScheduledAt == nil {
			// корт был только под предложение, бронь снимается вместе с ним
			m.Court = nil
		}

		if actor.Admin {
			s.confirm(m, &actor.ID, fx)
		} else {
			autoAt := now.Add(s.cfg.AutoConfirm)
			m.Status = model.MatchStatusInReview
			m.Result.Status = model.ResultStatusInReview
			m.Result.AutoConfirmAt = &autoAt
			model.Respond(m.Result.Responses, reporter, model.ResponseStatusApproved, now, "")
			fx.notify("Result awaiting confirmation",
				fmt.Sprintf("Your opponent reported %s. Confirm or reject it before %s.",
					scoring.FormatScore(m.Result.Sets), s.when(autoAt)),
				m, m.Opponent(reporter))
		}

		_, err = s.courts.UpsertMatchReservation(ctx, m, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Match result reported",
		zap.String("match_id", m.ID.String()),
		zap.String("score", scoring.FormatScore(m.Result.Sets)),
		zap.String("result_status", string(m.Result.Status)))
	return m, nil
}

func (s *MatchService) validateScore(ctx context.Context, m *model.Match, in ReportResultInput) (scoring.Outcome, error) {
	category, err := s.repos.Categories.GetByID(ctx, m.CategoryID)
	if err != nil {
		return scoring.Outcome{}, fmt.Errorf("get category: %w", err)
	}
	code := ""
	if category != nil {
		code = category.Format
	}
	format, err := scoring.Lookup(code)
	if err != nil {
		return scoring.Outcome{}, fmt.Errorf("category %s: %w", m.CategoryID, err)
	}

	sets := in.Sets
	if len(sets) == 0 {
		if strings.TrimSpace(in.Score) == "" {
			return scoring.Outcome{}, fieldError("sets", "sets or score is required")
		}
		if sets, err = format.ParseScore(in.Score); err != nil {
			return scoring.Outcome{}, scoreError("score", err)
		}
	}

	outcome, err := format.Validate(sets)
	if err != nil {
		return scoring.Outcome{}, scoreError("sets", err)
	}
	return outcome, nil
}

func scoreError(field string, err error) error {
	var setErr *scoring.SetError
	if errors.As(err, &setErr) {
		return fieldError(field, "%s", setErr.Error())
	}
	return err
}

// ConfirmResult ответ на сообщённый результат. Отказ возвращает матч к согласованию;
// подтверждение администратора или всех участников завершает матч.
func (s *MatchService) ConfirmResult(ctx context.Context, id uuid.UUID, actor model.Actor, decision model.Decision) (*model.Match, error) {
	if !decision.Valid() {
		return nil, fieldError("decision", "must be accept or reject")
	}

	return s.mutate(ctx, id, "league is closed, results cannot be confirmed", func(ctx context.Context, m *model.Match, fx *effects) error {
		if m.ResultStatus() != model.ResultStatusInReview {
			return validationf("match has no result awaiting confirmation")
		}

		participant := uuid.Nil
		if !actor.Admin {
			p, err := s.requireParticipant(ctx, m, actor, "confirm the result")
			if err != nil {
				return err
			}
			participant = p
		}

		if decision == model.DecisionReject {
			reporter := m.Result.ReportedBy
			m.Result = nil
			m.ScheduleConfirmation = nil
			s.resetToPending(m)
			if _, err := s.courts.UpsertMatchReservation(ctx, m, actor.ID); err != nil {
				return err
			}
			fx.notify("Result rejected", "The reported result was rejected. Agree on a new date and play again.", m)
			s.logger.Info("Match result rejected",
				zap.String("match_id", m.ID.String()),
				zap.String("reported_by", reporter.String()),
				zap.String("by", actor.ID.String()))
			return nil
		}

		if actor.Admin {
			s.confirm(m, &actor.ID, fx)
		} else {
			model.Respond(m.Result.Responses, participant, model.ResponseStatusApproved, s.now(), "")
			if model.AllApproved(m.Result.Responses) {
				s.confirm(m, &actor.ID, fx)
			}
		}

		_, err := s.courts.UpsertMatchReservation(ctx, m, actor.ID)
		return err
	})
}

// confirm фиксирует результат и завершает матч; by = nil при автоподтверждении
func (s *MatchService) confirm(m *model.Match, by *uuid.UUID, fx *effects) {
	now := s.now()
	m.Status = model.MatchStatusCompleted
	m.ExpiresAt = nil
	m.Result.Status = model.ResultStatusConfirmed
	m.Result.ConfirmedAt = &now
	m.Result.ConfirmedBy = by
	m.Result.AutoConfirmed = by == nil

	fx.recompute = append(fx.recompute, m.CategoryID)
	msg := fmt.Sprintf("Final score %s.", scoring.FormatScore(m.Result.Sets))
	if m.Result.AutoConfirmed {
		msg = fmt.Sprintf("The result %s was confirmed automatically because nobody answered in time.",
			scoring.FormatScore(m.Result.Sets))
	}
	fx.notify("Result confirmed", msg, m)
}
