// Package rest HTTP API лиги: матчи, корты, таблицы и служебные запуски задач
package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/auth"
	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/service"
)

// SweepRunner ручной запуск фоновой задачи
type SweepRunner interface {
	RunNow(ctx context.Context, name string) (service.SweepReport, error)
}

type Server struct {
	matches   *service.MatchService
	courts    *service.CourtService
	standings *service.StandingsService
	sweeps    SweepRunner
	tokens    *auth.Tokens
	logger    *zap.Logger
}

func NewServer(
	matches *service.MatchService,
	courts *service.CourtService,
	standings *service.StandingsService,
	sweeps SweepRunner,
	tokens *auth.Tokens,
	logger *zap.Logger,
) *Server {
	return &Server{
		matches:   matches,
		courts:    courts,
		standings: standings,
		sweeps:    sweeps,
		tokens:    tokens,
		logger:    logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", s.listMatches)
			r.Post("/", s.createMatch)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getMatch)
				r.Patch("/", s.updateMatch)
				r.Delete("/", s.deleteMatch)
				r.Post("/propose", s.propose)
				r.Post("/proposal/respond", s.respondToProposal)
				r.Post("/schedule/respond", s.respondToSchedule)
				r.Post("/result", s.reportResult)
				r.Post("/result/confirm", s.confirmResult)
			})
		})

		r.Route("/courts", func(r chi.Router) {
			r.Get("/", s.listCourts)
			r.Get("/availability", s.availability)
			r.Get("/reservations", s.listReservations)
			r.Post("/reservations", s.reserve)
			r.Delete("/reservations/{id}", s.cancelReservation)
			r.Get("/blocks", s.listBlocks)
			r.Post("/blocks", s.createBlock)
			r.Delete("/blocks/{id}", s.deleteBlock)
		})

		r.Get("/categories/{id}/standings", s.listStandings)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/sweeps/{name}", s.runSweep)
		})
	})

	return r
}

type actorKey struct{}

// authenticate достаёт actor из Bearer токена
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			s.writeJSON(w, http.StatusUnauthorized, errorBody{Message: "missing bearer token"})
			return
		}

		actor, err := s.tokens.Parse(raw)
		if err != nil {
			s.logger.Debug("Rejected token", zap.Error(err))
			s.writeJSON(w, http.StatusUnauthorized, errorBody{Message: "invalid or expired token"})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r).Admin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"admin role required"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFrom(r *http.Request) model.Actor {
	actor, _ := r.Context().Value(actorKey{}).(model.Actor)
	return actor
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
