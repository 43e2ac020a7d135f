package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/service"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Message string               `json:"message,omitempty"`
	Errors  []service.FieldError `json:"errors,omitempty"`
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var typeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &typeError):
			if typeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", typeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", typeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("body contains unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBodyBytes)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, errorBody{Message: err.Error()})
}

// writeError переводит ошибку сервиса в статус и тело ответа
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *service.ValidationError
		slot       *service.InvalidSlotError
		notFound   *service.NotFoundError
		forbidden  *service.ForbiddenError
		conflict   *service.ConflictError
		blocked    *service.BlockedError
		closed     *service.LeagueClosedError
	)

	switch {
	case errors.As(err, &validation):
		if len(validation.Fields) > 0 {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Errors: validation.Fields})
			return
		}
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: validation.Message})
	case errors.As(err, &slot):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: slot.Error()})
	case errors.As(err, &notFound):
		s.writeJSON(w, http.StatusNotFound, errorBody{Message: notFound.Error()})
	case errors.As(err, &forbidden):
		s.writeJSON(w, http.StatusForbidden, errorBody{Message: forbidden.Error()})
	case errors.As(err, &conflict):
		s.writeJSON(w, http.StatusConflict, errorBody{Message: conflict.Error()})
	case errors.As(err, &blocked):
		s.writeJSON(w, http.StatusConflict, errorBody{Message: blocked.Error()})
	case errors.As(err, &closed):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Message: closed.Error()})
	default:
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Message: "internal server error"})
	}
}
