package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
)

func TestExpireOverdueMatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	proposed := f.createPending(t)
	_, err := f.matches.Propose(ctx, proposed.ID, f.actor(f.p1), ProposeInput{ProposedFor: f.local(t, "2025-03-01 11:00")})
	require.NoError(t, err)
	idle := f.createPending(t)
	scheduled := f.createScheduled(t, f.local(t, "2025-03-02 11:00"), nil)

	report, err := f.matches.ExpireOverdueMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{}, report, "nothing is overdue yet")

	f.clock.Advance(15*24*time.Hour + time.Minute)
	report, err = f.matches.ExpireOverdueMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Scanned: 2, Walkovers: 1, Expired: 1}, report)

	m, err := f.matches.Get(ctx, proposed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusCompleted, m.Status)
	require.NotNil(t, m.Result)
	assert.True(t, m.Result.Walkover)
	assert.True(t, m.Result.AutoConfirmed)
	assert.Equal(t, model.ResultStatusConfirmed, m.Result.Status)
	assert.Equal(t, f.p1, m.Result.Winner)
	require.Len(t, m.Result.Sets, 2)
	for _, set := range m.Result.Sets {
		assert.Equal(t, [2]int{6, 0}, set.Scores)
	}
	assert.Nil(t, f.liveReservation(t, m.ID), "walkover releases the pre-reserved court")
	for _, res := range f.matchReservations(t, m.ID) {
		assert.Equal(t, model.ReservationStatusCancelled, res.Status)
	}

	m, err = f.matches.Get(ctx, idle.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusExpired, m.Status)
	assert.Nil(t, m.Result)
	assert.Nil(t, m.ExpiresAt)

	m, err = f.matches.Get(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusScheduled, m.Status)

	assert.Contains(t, f.notifier.Titles(), "Walkover")
	assert.Contains(t, f.notifier.Titles(), "Match expired")

	standings, err := f.standings.List(ctx, f.category.ID)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, f.p1, standings[0].ParticipantID)
	assert.Equal(t, PointsWin, standings[0].Points)
	assert.Equal(t, PointsWalkoverLoss, standings[1].Points)

	report, err = f.matches.ExpireOverdueMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{}, report, "second run finds nothing")
}

func TestExpireSkipsProposalOfOutsider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := f.createPending(t)
	// предложение без автора среди участников не даёт технической победы
	stored, err := f.repos.Matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	stored.Status = model.MatchStatusProposed
	stored.Proposal = &model.Proposal{
		ProposedFor: f.local(t, "2025-03-01 11:00"),
		RequestedBy: f.outsider,
		RequestedTo: f.p2,
		Status:      model.ProposalStatusPending,
	}
	require.NoError(t, f.repos.Matches.Update(ctx, stored))

	f.clock.Advance(16 * 24 * time.Hour)
	report, err := f.matches.ExpireOverdueMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)

	got, err := f.matches.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusExpired, got.Status)
}

type failingMatches struct {
	MatchStore
	failID uuid.UUID
}

func (f failingMatches) Update(ctx context.Context, m *model.Match) error {
	if m.ID == f.failID {
		return errors.New("disk full")
	}
	return f.MatchStore.Update(ctx, m)
}

func TestExpirationIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	broken := f.createPending(t)
	healthy := f.createPending(t)

	repos := f.repos
	repos.Matches = failingMatches{MatchStore: f.repos.Matches, failID: broken.ID}
	svc := NewMatchService(repos, f.courts, f.gate, f.notifier, f.standings, MatchConfig{}, f.clock.Now, zap.NewNop())

	f.clock.Advance(15*24*time.Hour + time.Hour)
	report, err := svc.ExpireOverdueMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Scanned: 2, Expired: 1, Failed: 1}, report)

	m, err := f.matches.Get(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusExpired, m.Status)

	m, err = f.matches.Get(ctx, broken.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusPending, m.Status, "failed match is rolled back and retried next run")
}

func TestAutoConfirmResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := f.createScheduled(t, f.local(t, "2025-02-27 18:30"), nil)
	f.clock.Advance(12 * time.Hour)
	_, err := f.matches.ReportResult(ctx, m.ID, f.actor(f.p1), ReportResultInput{WinnerID: f.p1, Score: "6-4 6-4"})
	require.NoError(t, err)

	report, err := f.matches.AutoConfirmResults(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Confirmed, "confirmation window is still open")

	f.clock.Advance(DefaultAutoConfirm)
	report, err = f.matches.AutoConfirmResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Scanned: 1, Confirmed: 1}, report)

	got, err := f.matches.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusCompleted, got.Status)
	assert.Equal(t, model.ResultStatusConfirmed, got.Result.Status)
	assert.True(t, got.Result.AutoConfirmed)
	assert.Nil(t, got.Result.ConfirmedBy)
	assert.Equal(t, model.ReservationStatusReserved, f.liveReservation(t, m.ID).Status)

	standings, err := f.standings.List(ctx, f.category.ID)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, PointsWin, standings[0].Points)
	assert.Equal(t, PointsLoss, standings[1].Points)

	report, err = f.matches.AutoConfirmResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{}, report)
}
