package controller

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/auth"
	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/memory"
	"github.com/Freeeeeet/club_league/internal/service"
)

type fakeMatches struct {
	matches []*model.Match
	filter  model.MatchFilter
	err     error
}

func (f *fakeMatches) List(_ context.Context, filter model.MatchFilter) ([]*model.Match, error) {
	f.filter = filter
	return f.matches, f.err
}

func newTestController(t *testing.T, matches Matches) (*BotController, *memory.Store, *auth.Tokens) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
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
	// 2025-02-27 10:00 по Мадриду
	now := func() time.Time { return time.Date(2025, 2, 27, 9, 0, 0, 0, time.UTC) }
	courts := service.NewCourtService(repos, service.CourtConfig{Courts: []string{"1", "2"}, Location: loc}, now, zap.NewNop())

	tokens := auth.NewTokens("bot-secret")
	c := NewBotController(nil, store.Players(), matches, courts, tokens, loc, zap.NewNop())
	c.now = now
	return c, store, tokens
}

func TestLinkAccount(t *testing.T) {
	c, store, tokens := newTestController(t, &fakeMatches{})
	ctx := context.Background()
	ana := model.Player{ID: uuid.New(), Name: "Ana"}
	store.AddPlayer(ana)

	code, err := tokens.Issue(model.Actor{ID: ana.ID}, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "Usage: /link <code>", c.handleLink(ctx, 42, "/link"))
	assert.Contains(t, c.handleLink(ctx, 42, "/link not-a-token"), "invalid or has expired")

	reply := c.handleLink(ctx, 42, "/link "+code)
	assert.Equal(t, "✅ Linked to Ana. Match notifications will arrive here.", reply)

	p, err := store.Players().GetByTelegramID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, ana.ID, p.ID)

	assert.Contains(t, c.handleStart(ctx, 42, "/start"), "Hi, Ana!")
	assert.Contains(t, c.handleStart(ctx, 7, "/start"), "Welcome")
}

func TestLinkUnknownPlayer(t *testing.T) {
	c, _, tokens := newTestController(t, &fakeMatches{})
	code, err := tokens.Issue(model.Actor{ID: uuid.New()}, time.Hour)
	require.NoError(t, err)

	assert.Contains(t, c.handleLink(context.Background(), 42, "/link "+code), "Could not link")
}

func TestListMatches(t *testing.T) {
	ana := model.Player{ID: uuid.New(), Name: "Ana", TelegramID: ptr(int64(42))}
	scheduledAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	court := "2"
	expires := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	matches := &fakeMatches{matches: []*model.Match{
		{ID: uuid.MustParse("11111111-0000-0000-0000-000000000000"), Status: model.MatchStatusScheduled, ScheduledAt: &scheduledAt, Court: &court},
		{ID: uuid.MustParse("22222222-0000-0000-0000-000000000000"), Status: model.MatchStatusPending, ExpiresAt: &expires},
		{ID: uuid.MustParse("33333333-0000-0000-0000-000000000000"), Status: model.MatchStatusCompleted},
	}}
	c, store, _ := newTestController(t, matches)
	store.AddPlayer(ana)
	ctx := context.Background()

	reply := c.handleMatches(ctx, 42, "/matches")
	assert.Equal(t, "🎾 Your open matches:\n\n"+
		"• 11111111: Sat 01 Mar 11:00, court 2\n"+
		"• 22222222: agree on a date before 14 Mar", reply)
	require.NotNil(t, matches.filter.PlayerID)
	assert.Equal(t, ana.ID, *matches.filter.PlayerID)

	assert.Contains(t, c.handleMatches(ctx, 7, "/matches"), "not linked")

	matches.err = errors.New("connection reset")
	assert.Contains(t, c.handleMatches(ctx, 42, "/matches"), "Something went wrong")

	matches.err = nil
	matches.matches = nil
	assert.Equal(t, "🎾 You have no open matches.", c.handleMatches(ctx, 42, "/matches"))
}

func TestCourtsImage(t *testing.T) {
	c, _, _ := newTestController(t, &fakeMatches{})
	ctx := context.Background()

	image, caption, err := c.courtDay(ctx, "/courts 2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, "📅 Sat 01 Mar: 22 free slots", caption)
	assert.Equal(t, []byte("\x89PNG"), image[:4])

	_, caption, err = c.courtDay(ctx, "/courts")
	require.NoError(t, err)
	assert.Equal(t, "📅 Thu 27 Feb: 22 free slots", caption)

	_, _, err = c.courtDay(ctx, "/courts tomorrow")
	assert.Equal(t, replyError("Usage: /courts [YYYY-MM-DD]"), err)
}

func ptr[T any](v T) *T {
	return &v
}
