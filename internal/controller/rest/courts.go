package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/service"
)

const defaultBlocksWindow = 7 * 24 * time.Hour

type reserveRequest struct {
	Court        string      `json:"court"`
	StartsAt     time.Time   `json:"starts_at"`
	Participants []uuid.UUID `json:"participants"`
}

type blockRequest struct {
	Courts      []string          `json:"courts"`
	StartsAt    time.Time         `json:"starts_at"`
	EndsAt      time.Time         `json:"ends_at"`
	ContextType model.ContextType `json:"context_type"`
	ContextID   *uuid.UUID        `json:"context_id"`
	Notes       string            `json:"notes"`
}

func (s *Server) listCourts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"courts":   s.courts.Courts(),
		"timezone": s.courts.Location().String(),
	})
}

// availability ?date=2025-03-01 (день по времени клуба, по умолчанию сегодня) &court=
func (s *Server) availability(w http.ResponseWriter, r *http.Request) {
	date := time.Now().In(s.courts.Location())
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, s.courts.Location())
		if err != nil {
			s.writeError(w, r, fieldErr("date", err))
			return
		}
		date = d
	}

	slots, err := s.courts.Availability(r.Context(), date, r.URL.Query().Get("court"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, slots)
}

func (s *Server) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	res, err := s.courts.Reserve(r.Context(), actorFrom(r), service.ReserveInput{
		Court:        req.Court,
		StartsAt:     req.StartsAt,
		Participants: req.Participants,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.ReservationFilter{Court: q.Get("court")}
	var err error

	if f.From, err = optionalTime(q.Get("from")); err != nil {
		s.writeError(w, r, fieldErr("from", err))
		return
	}
	if f.To, err = optionalTime(q.Get("to")); err != nil {
		s.writeError(w, r, fieldErr("to", err))
		return
	}
	if f.MatchID, err = optionalUUID(q.Get("match_id")); err != nil {
		s.writeError(w, r, fieldErr("match_id", err))
		return
	}
	if v := q.Get("include_cancelled"); v != "" {
		if f.IncludeCancelled, err = strconv.ParseBool(v); err != nil {
			s.writeError(w, r, fieldErr("include_cancelled", err))
			return
		}
	}

	reservations, err := s.courts.ListReservations(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if reservations == nil {
		reservations = []*model.CourtReservation{}
	}
	s.writeJSON(w, http.StatusOK, reservations)
}

func (s *Server) cancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	res, err := s.courts.CancelReservation(r.Context(), actorFrom(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) createBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}

	b, err := s.courts.CreateBlock(r.Context(), actorFrom(r), service.BlockInput{
		Courts:      req.Courts,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		ContextType: req.ContextType,
		ContextID:   req.ContextID,
		Notes:       req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, b)
}

// listBlocks ?from&to в RFC 3339, по умолчанию неделя с текущего момента
func (s *Server) listBlocks(w http.ResponseWriter, r *http.Request) {
	from, to := time.Now(), time.Now().Add(defaultBlocksWindow)
	if v, err := optionalTime(r.URL.Query().Get("from")); err != nil {
		s.writeError(w, r, fieldErr("from", err))
		return
	} else if v != nil {
		from = *v
	}
	if v, err := optionalTime(r.URL.Query().Get("to")); err != nil {
		s.writeError(w, r, fieldErr("to", err))
		return
	} else if v != nil {
		to = *v
	}

	blocks, err := s.courts.ListBlocks(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if blocks == nil {
		blocks = []*model.CourtBlock{}
	}
	s.writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.courts.DeleteBlock(r.Context(), actorFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func optionalTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
