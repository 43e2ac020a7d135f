package service

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/memory"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg model.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) Titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	titles := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		titles = append(titles, s.Title)
	}
	return titles
}

type fixture struct {
	store     *memory.Store
	repos     Repositories
	clock     *testClock
	notifier  *recordingNotifier
	loc       *time.Location
	courts    *CourtService
	matches   *MatchService
	standings *StandingsService
	gate      *LeagueGate

	league   model.League
	category model.Category
	p1, p2   uuid.UUID
	outsider uuid.UUID
	admin    model.Actor
}

func memoryRepositories(s *memory.Store) Repositories {
	return Repositories{
		Tx:           s,
		Matches:      s.Matches(),
		Reservations: s.Reservations(),
		Blocks:       s.Blocks(),
		Leagues:      s.Leagues(),
		Categories:   s.Categories(),
		Players:      s.Players(),
		Standings:    s.Standings(),
	}
}

// 2025-02-27 10:00 по Мадриду
var fixtureNow = time.Date(2025, 2, 27, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	f := &fixture{
		store:    memory.NewStore(),
		clock:    &testClock{t: fixtureNow},
		notifier: &recordingNotifier{},
		loc:      loc,
		p1:       uuid.New(),
		p2:       uuid.New(),
		outsider: uuid.New(),
		admin:    model.Actor{ID: uuid.New(), Admin: true},
	}
	f.repos = memoryRepositories(f.store)

	ends := fixtureNow.AddDate(0, 3, 0)
	f.league = model.League{ID: uuid.New(), Name: "Spring league", Status: model.LeagueStatusOpen, EndsAt: &ends}
	f.category = model.Category{ID: uuid.New(), LeagueID: &f.league.ID, Name: "Men A"}
	f.store.AddLeague(f.league)
	f.store.AddCategory(f.category)
	for i, id := range []uuid.UUID{f.p1, f.p2, f.outsider, f.admin.ID} {
		f.store.AddPlayer(model.Player{ID: id, Name: []string{"Ana", "Bea", "Carla", "Admin"}[i]})
	}
	f.store.Enroll(f.category.ID, f.p1, f.p2)

	logger := zap.NewNop()
	f.courts = NewCourtService(f.repos, CourtConfig{Courts: []string{"1", "2"}, Location: loc}, f.clock.Now, logger)
	f.gate = NewLeagueGate(f.repos.Leagues, f.clock.Now, logger)
	f.standings = NewStandingsService(f.repos, f.clock.Now, logger)
	f.matches = NewMatchService(f.repos, f.courts, f.gate, f.notifier, f.standings, MatchConfig{}, f.clock.Now, logger)
	return f
}

// local время по часам клуба
func (f *fixture) local(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, f.loc)
	require.NoError(t, err)
	return ts
}

func (f *fixture) actor(id uuid.UUID) model.Actor {
	return model.Actor{ID: id}
}

func (f *fixture) createPending(t *testing.T) *model.Match {
	t.Helper()
	m, err := f.matches.Create(context.Background(), f.admin, CreateMatchInput{
		CategoryID: f.category.ID,
		Players:    []uuid.UUID{f.p1, f.p2},
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) createScheduled(t *testing.T, at time.Time, court *string) *model.Match {
	t.Helper()
	m, err := f.matches.Create(context.Background(), f.admin, CreateMatchInput{
		CategoryID:  f.category.ID,
		Players:     []uuid.UUID{f.p1, f.p2},
		ScheduledAt: &at,
		Court:       court,
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) liveReservation(t *testing.T, matchID uuid.UUID) *model.CourtReservation {
	t.Helper()
	res, err := f.repos.Reservations.GetActiveByMatchID(context.Background(), matchID)
	require.NoError(t, err)
	return res
}

func (f *fixture) matchReservations(t *testing.T, matchID uuid.UUID) []*model.CourtReservation {
	t.Helper()
	all, err := f.repos.Reservations.List(context.Background(), model.ReservationFilter{MatchID: &matchID, IncludeCancelled: true})
	require.NoError(t, err)
	return all
}

func ptr[T any](v T) *T {
	return &v
}
