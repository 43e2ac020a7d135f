package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
)

type ProposeInput struct {
	ProposedFor time.Time
	Message     string
}

// Propose участник предлагает дату. Прежнее расписание снимается, под новую дату
// по возможности ставится предварительная бронь, прежний корт пробуется первым.
func (s *MatchService) Propose(ctx context.Context, id uuid.UUID, actor model.Actor, in ProposeInput) (*model.Match, error) {
	if err := s.courts.ValidateSlot(in.ProposedFor, s.courts.SlotEnd(in.ProposedFor)); err != nil {
		return nil, err
	}
	if in.ProposedFor.Before(s.now()) {
		return nil, fieldError("proposed_for", "cannot propose a date in the past")
	}

	m, err := s.mutate(ctx, id, "league is closed, dates cannot be proposed", func(ctx context.Context, m *model.Match, fx *effects) error {
		switch m.Status {
		case model.MatchStatusCompleted, model.MatchStatusExpired:
			return validationf("match is already %s", m.Status)
		case model.MatchStatusInReview:
			return validationf("match result is already reported")
		}
		proposer, err := s.requireParticipant(ctx, m, actor, "propose a date")
		if err != nil {
			return err
		}

		previousCourt := m.Court
		m.Status = model.MatchStatusProposed
		m.ScheduledAt = nil
		m.Court = nil
		m.ScheduleConfirmation = nil
		m.Proposal = &model.Proposal{
			RequestedBy: proposer,
			RequestedTo: m.Opponent(proposer),
			ProposedFor: in.ProposedFor,
			Message:     in.Message,
			Status:      model.ProposalStatusPending,
			CreatedAt:   s.now(),
		}
		if m.ExpiresAt == nil {
			m.ExpiresAt = s.expiry()
		}

		court, err := s.courts.AutoAssignCourt(ctx, in.ProposedFor, previousCourt, m.Contexts(), &m.ID)
		switch {
		case err == nil:
			m.Court = &court
		case isSlotUnavailable(err):
			s.logger.Info("No court for proposed date, proposal kept without pre-reservation",
				zap.String("match_id", m.ID.String()),
				zap.Time("proposed_for", in.ProposedFor))
		default:
			return err
		}

		if _, err := s.courts.UpsertMatchReservation(ctx, m, actor.ID); err != nil {
			return err
		}

		msg := fmt.Sprintf("Your opponent proposed %s", s.when(in.ProposedFor))
		if m.Court != nil {
			msg += fmt.Sprintf(" on court %s", *m.Court)
		}
		if in.Message != "" {
			msg += ": " + in.Message
		}
		fx.notify("New date proposal", msg, m, m.Proposal.RequestedTo)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Match date proposed",
		zap.String("match_id", m.ID.String()),
		zap.Time("proposed_for", in.ProposedFor),
		zap.Stringp("court", m.Court))
	return m, nil
}

// RespondToProposal ответ приглашённого участника на предложенную дату
func (s *MatchService) RespondToProposal(ctx context.Context, id uuid.UUID, actor model.Actor, decision model.Decision) (*model.Match, error) {
	if !decision.Valid() {
		return nil, fieldError("decision", "must be accept or reject")
	}

	return s.mutate(ctx, id, "league is closed, proposals cannot be answered", func(ctx context.Context, m *model.Match, fx *effects) error {
		if m.Status != model.MatchStatusProposed || m.Proposal == nil || m.Proposal.Status != model.ProposalStatusPending {
			return validationf("match has no pending proposal")
		}
		if !actor.Admin {
			p, err := s.requireParticipant(ctx, m, actor, "answer a proposal")
			if err != nil {
				return err
			}
			if p != m.Proposal.RequestedTo {
				return &ForbiddenError{Message: "only the invited participant can answer the proposal"}
			}
		}

		proposer := m.Proposal.RequestedBy
		if decision == model.DecisionReject {
			s.resetToPending(m)
			if _, err := s.courts.UpsertMatchReservation(ctx, m, actor.ID); err != nil {
				return err
			}
			fx.notify("Proposal rejected", "Your proposed date was rejected. Propose another one.", m, proposer)
			return nil
		}

		proposal := *m.Proposal
		if err := s.schedule(ctx, m, proposal.ProposedFor, m.Court, nil); err != nil {
			return err
		}
		proposal.Status = model.ProposalStatusAccepted
		m.Proposal = &proposal

		// обе стороны уже согласились на эту дату
		now := s.now()
		for _, p := range m.Players {
			model.Respond(m.ScheduleConfirmation.Responses, p, model.ResponseStatusApproved, now, "")
		}
		m.ScheduleConfirmation.Status = model.ConfirmationStatusConfirmed

		if _, err := s.courts.UpsertMatchReservation(ctx, m, actor.ID); err != nil {
			return err
		}
		fx.notify("Match scheduled",
			fmt.Sprintf("Your match is scheduled for %s on court %s.", s.when(*m.ScheduledAt), *m.Court), m)
		return nil
	})
}

// RespondToScheduleConfirmation подтверждение назначенного расписания участником.
// Отказ с причиной возвращает матч к согласованию и снимает бронь.
func (s *MatchService) RespondToScheduleConfirmation(ctx context.Context, id uuid.UUID, actor model.Actor, decision model.Decision, reason string) (*model.Match, error) {
	if !decision.Valid() {
		return nil, fieldError("decision", "must be accept or reject")
	}
	reason = strings.TrimSpace(reason)
	if decision == model.DecisionReject && reason == "" {
		return nil, fieldError("reason", "a reason is required to reject the schedule")
	}

	return s.mutate(ctx, id, "league is closed, schedules cannot be confirmed", func(ctx context.Context, m *model.Match, fx *effects) error {
		sc := m.ScheduleConfirmation
		if m.Status != model.MatchStatusScheduled || sc == nil || sc.Status != model.ConfirmationStatusPending {
			return validationf("match has no schedule awaiting confirmation")
		}
		p, err := s.requireParticipant(ctx, m, actor, "confirm the schedule")
		if err != nil {
			return err
		}

		now := s.now()
		if decision == model.DecisionReject {
			model.Respond(sc.Responses, p, model.ResponseStatusRejected, now, reason)
			sc.Status = model.ConfirmationStatusRejected
			s.resetToPending(m)
			if _, err := s.courts.UpsertMatchReservation(ctx, m, actor.ID); err != nil {
				return err
			}
			fx.notify("Schedule rejected", "Your opponent rejected the match schedule: "+reason, m, m.Opponent(p))
			return nil
		}

		model.Respond(sc.Responses, p, model.ResponseStatusApproved, now, "")
		if model.AllApproved(sc.Responses) {
			sc.Status = model.ConfirmationStatusConfirmed
			fx.notify("Schedule confirmed", "Both sides confirmed the match schedule.", m)
		}
		return nil
	})
}
