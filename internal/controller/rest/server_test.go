package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/app"
	"github.com/Freeeeeet/club_league/internal/auth"
	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/memory"
	"github.com/Freeeeeet/club_league/internal/service"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.Notification) {}

type fakeSweeps struct {
	calls []string
}

func (f *fakeSweeps) RunNow(_ context.Context, name string) (service.SweepReport, error) {
	if name != app.JobExpiration {
		return service.SweepReport{}, fmt.Errorf("%w: %s", app.ErrUnknownJob, name)
	}
	f.calls = append(f.calls, name)
	return service.SweepReport{Scanned: 2, Expired: 2}, nil
}

type testAPI struct {
	handler  http.Handler
	tokens   *auth.Tokens
	sweeps   *fakeSweeps
	category uuid.UUID
	p1, p2   uuid.UUID
	admin    uuid.UUID
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	// 2025-02-27 10:00 по Мадриду
	now := func() time.Time { return time.Date(2025, 2, 27, 9, 0, 0, 0, time.UTC) }
	store := memory.NewStore()
	repos := service.Repositories{
		Tx:           store,
		Matches:      store.Matches(),
		Reservations: store.Reservations(),
		Blocks:       store.Blocks(),
		Leagues:      store.Leagues(),
		Categories:   store.Categories(),
		Players:      store.Players(),
		Standings:    store.Standings(),
	}

	api := &testAPI{
		tokens:   auth.NewTokens("test-secret"),
		sweeps:   &fakeSweeps{},
		category: uuid.New(),
		p1:       uuid.New(),
		p2:       uuid.New(),
		admin:    uuid.New(),
	}
	leagueID := uuid.New()
	store.AddLeague(model.League{ID: leagueID, Name: "Spring", Status: model.LeagueStatusOpen})
	store.AddCategory(model.Category{ID: api.category, LeagueID: &leagueID, Name: "Women B"})
	store.AddPlayer(model.Player{ID: api.p1, Name: "Ana"})
	store.AddPlayer(model.Player{ID: api.p2, Name: "Bea"})
	store.Enroll(api.category, api.p1, api.p2)

	logger := zap.NewNop()
	courts := service.NewCourtService(repos, service.CourtConfig{Courts: []string{"1", "2"}, Location: loc}, now, logger)
	gate := service.NewLeagueGate(repos.Leagues, now, logger)
	standings := service.NewStandingsService(repos, now, logger)
	matches := service.NewMatchService(repos, courts, gate, nopNotifier{}, standings, service.MatchConfig{}, now, logger)

	api.handler = NewServer(matches, courts, standings, api.sweeps, api.tokens, logger).Routes()
	return api
}

func (a *testAPI) token(t *testing.T, id uuid.UUID, admin bool) string {
	t.Helper()
	raw, err := a.tokens.Issue(model.Actor{ID: id, Admin: admin}, time.Hour)
	require.NoError(t, err)
	return raw
}

func (a *testAPI) do(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzAndAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, "", http.MethodGet, "/matches", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, "garbage", http.MethodGet, "/matches", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, api.token(t, api.p1, false), http.MethodGet, "/matches", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestMatchFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := api.token(t, api.admin, true)
	ana := api.token(t, api.p1, false)
	bea := api.token(t, api.p2, false)

	rec := api.do(t, ana, http.MethodPost, "/matches", map[string]any{
		"category_id": api.category, "players": []uuid.UUID{api.p1, api.p2},
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, admin, http.MethodPost, "/matches", map[string]any{
		"category_id": api.category, "players": []uuid.UUID{api.p1, api.p2},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode[model.Match](t, rec)
	assert.Equal(t, model.MatchStatusPending, m.Status)
	base := "/matches/" + m.ID.String()

	rec = api.do(t, ana, http.MethodPost, base+"/propose", map[string]any{"proposed_for": "2025-03-01T10:10:00Z"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "off-grid slot")

	rec = api.do(t, ana, http.MethodPost, base+"/propose", map[string]any{"proposed_for": "2025-03-01T10:00:00Z"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m = decode[model.Match](t, rec)
	assert.Equal(t, model.MatchStatusProposed, m.Status)

	rec = api.do(t, bea, http.MethodPost, base+"/proposal/respond", map[string]any{"decision": "accept"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m = decode[model.Match](t, rec)
	assert.Equal(t, model.MatchStatusScheduled, m.Status)
	require.NotNil(t, m.Court)

	rec = api.do(t, bea, http.MethodPost, base+"/result", map[string]any{"winner_id": api.p2, "score": "3-6 6-4 7-10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m = decode[model.Match](t, rec)
	assert.Equal(t, model.MatchStatusInReview, m.Status)

	rec = api.do(t, ana, http.MethodPost, base+"/result/confirm", map[string]any{"decision": "accept"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m = decode[model.Match](t, rec)
	assert.Equal(t, model.MatchStatusCompleted, m.Status)

	rec = api.do(t, ana, http.MethodGet, "/categories/"+api.category.String()+"/standings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	standings := decode[[]model.Standing](t, rec)
	require.Len(t, standings, 2)
	assert.Equal(t, api.p2, standings[0].ParticipantID)

	rec = api.do(t, admin, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "completed matches stay")
}

func TestErrorResponses(t *testing.T) {
	api := newTestAPI(t)
	ana := api.token(t, api.p1, false)
	bea := api.token(t, api.p2, false)

	rec := api.do(t, ana, http.MethodGet, "/matches/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, ana, http.MethodGet, "/matches/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, ana, http.MethodPost, "/courts/reservations", `{"court": "1", "starts_at": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Message, "badly-formed JSON")

	rec = api.do(t, ana, http.MethodPost, "/courts/reservations", `{"court": "1", "color": "red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Message, "unknown key")

	rec = api.do(t, ana, http.MethodPost, "/courts/reservations", map[string]any{"court": "9", "starts_at": "2025-02-28T10:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "court", body.Errors[0].Field)

	rec = api.do(t, ana, http.MethodPost, "/courts/reservations", map[string]any{"court": "1", "starts_at": "2025-02-28T10:00:00Z"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[model.CourtReservation](t, rec)

	rec = api.do(t, bea, http.MethodPost, "/courts/reservations", map[string]any{"court": "1", "starts_at": "2025-02-28T10:00:00Z"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, bea, http.MethodDelete, "/courts/reservations/"+res.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, ana, http.MethodGet, "/courts/availability?date=2025-02-28&court=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[[]model.SlotAvailability](t, rec)
	require.Len(t, slots, 11)
	assert.Equal(t, model.SlotStateBooked, slots[2].State)

	rec = api.do(t, ana, http.MethodGet, "/courts/availability?date=28.02.2025", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminSweeps(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, api.token(t, api.p1, false), http.MethodPost, "/admin/sweeps/expiration", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, api.sweeps.calls)

	admin := api.token(t, api.admin, true)
	rec = api.do(t, admin, http.MethodPost, "/admin/sweeps/expiration", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.SweepReport{Scanned: 2, Expired: 2}, decode[service.SweepReport](t, rec))

	rec = api.do(t, admin, http.MethodPost, "/admin/sweeps/reindex", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
