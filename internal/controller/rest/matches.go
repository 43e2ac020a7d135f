package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/service"
)

type createMatchRequest struct {
	CategoryID   uuid.UUID   `json:"category_id"`
	Players      []uuid.UUID `json:"players"`
	ScheduledAt  *time.Time  `json:"scheduled_at"`
	Court        *string     `json:"court"`
	TournamentID *uuid.UUID  `json:"tournament_id"`
}

type updateMatchRequest struct {
	ScheduledAt   *time.Time    `json:"scheduled_at"`
	Court         *string       `json:"court"`
	ClearSchedule bool          `json:"clear_schedule"`
	Players       *[2]uuid.UUID `json:"players"`
}

type proposeRequest struct {
	ProposedFor time.Time `json:"proposed_for"`
	Message     string    `json:"message"`
}

type decisionRequest struct {
	Decision model.Decision `json:"decision"`
	Reason   string         `json:"reason"`
}

type reportResultRequest struct {
	WinnerID uuid.UUID        `json:"winner_id"`
	Sets     []model.SetScore `json:"sets"`
	Score    string           `json:"score"`
	Notes    string           `json:"notes"`
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	m, err := s.matches.Create(r.Context(), actorFrom(r), service.CreateMatchInput{
		CategoryID:   req.CategoryID,
		Players:      req.Players,
		ScheduledAt:  req.ScheduledAt,
		Court:        req.Court,
		TournamentID: req.TournamentID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f model.MatchFilter
	var err error

	if f.CategoryID, err = optionalUUID(q.Get("category_id")); err != nil {
		s.writeError(w, r, fieldErr("category_id", err))
		return
	}
	if f.LeagueID, err = optionalUUID(q.Get("league_id")); err != nil {
		s.writeError(w, r, fieldErr("league_id", err))
		return
	}
	if f.PlayerID, err = optionalUUID(q.Get("player_id")); err != nil {
		s.writeError(w, r, fieldErr("player_id", err))
		return
	}
	if v := q.Get("status"); v != "" {
		status := model.MatchStatus(v)
		f.Status = &status
	}
	if v := q.Get("result_status"); v != "" {
		rs := model.ResultStatus(v)
		f.ResultStatus = &rs
	}
	if f.Limit, err = optionalInt(q.Get("limit")); err != nil {
		s.writeError(w, r, fieldErr("limit", err))
		return
	}
	if f.Offset, err = optionalInt(q.Get("offset")); err != nil {
		s.writeError(w, r, fieldErr("offset", err))
		return
	}

	matches, err := s.matches.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if matches == nil {
		matches = []*model.Match{}
	}
	s.writeJSON(w, http.StatusOK, matches)
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	m, err := s.matches.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) updateMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req updateMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	m, err := s.matches.Update(r.Context(), id, actorFrom(r), service.MatchPatch{
		ScheduledAt:   req.ScheduledAt,
		Court:         req.Court,
		ClearSchedule: req.ClearSchedule,
		Players:       req.Players,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) deleteMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.matches.Delete(r.Context(), id, actorFrom(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) propose(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req proposeRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	m, err := s.matches.Propose(r.Context(), id, actorFrom(r), service.ProposeInput{
		ProposedFor: req.ProposedFor,
		Message:     req.Message,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) respondToProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	m, err := s.matches.RespondToProposal(r.Context(), id, actorFrom(r), req.Decision)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) respondToSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	m, err := s.matches.RespondToScheduleConfirmation(r.Context(), id, actorFrom(r), req.Decision, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) reportResult(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req reportResultRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	m, err := s.matches.ReportResult(r.Context(), id, actorFrom(r), service.ReportResultInput{
		WinnerID: req.WinnerID,
		Sets:     req.Sets,
		Score:    req.Score,
		Notes:    req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) confirmResult(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	m, err := s.matches.ConfirmResult(r.Context(), id, actorFrom(r), req.Decision)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, fieldErr("id", err))
		return uuid.Nil, false
	}
	return id, true
}

func fieldErr(field string, err error) error {
	return &service.ValidationError{Fields: []service.FieldError{{Field: field, Msg: err.Error()}}}
}

func optionalUUID(v string) (*uuid.UUID, error) {
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func optionalInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
