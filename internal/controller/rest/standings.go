package rest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Freeeeeet/club_league/internal/app"
	"github.com/Freeeeeet/club_league/internal/lock"
	"github.com/Freeeeeet/club_league/internal/model"
)

func (s *Server) listStandings(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	standings, err := s.standings.List(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if standings == nil {
		standings = []model.Standing{}
	}
	s.writeJSON(w, http.StatusOK, standings)
}

func (s *Server) runSweep(w http.ResponseWriter, r *http.Request) {
	report, err := s.sweeps.RunNow(r.Context(), chi.URLParam(r, "name"))
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, report)
	case errors.Is(err, app.ErrUnknownJob):
		s.writeJSON(w, http.StatusNotFound, errorBody{Message: err.Error()})
	case errors.Is(err, lock.ErrNotAcquired):
		s.writeJSON(w, http.StatusConflict, errorBody{Message: "sweep is already running on another instance"})
	default:
		s.writeError(w, r, err)
	}
}
