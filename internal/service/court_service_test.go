package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/club_league/internal/model"
)

func TestValidateSlot(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		start   string
		length  time.Duration
		wantErr bool
	}{
		{start: "2025-03-01 08:30", length: 75 * time.Minute},
		{start: "2025-03-01 09:45", length: 75 * time.Minute},
		{start: "2025-03-01 21:00", length: 75 * time.Minute},
		{start: "2025-03-01 08:00", length: 75 * time.Minute, wantErr: true},
		{start: "2025-03-01 08:45", length: 75 * time.Minute, wantErr: true},
		{start: "2025-03-01 22:15", length: 75 * time.Minute, wantErr: true},
		{start: "2025-03-01 08:30", length: 60 * time.Minute, wantErr: true},
		{start: "2025-03-01 08:30", length: 150 * time.Minute, wantErr: true},
		// после перехода на летнее время сетка остаётся по часам клуба
		{start: "2025-03-30 11:00", length: 75 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.start+"/"+tt.length.String(), func(t *testing.T) {
			start := f.local(t, tt.start)
			err := f.courts.ValidateSlot(start, start.Add(tt.length))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var slotErr *InvalidSlotError
			require.ErrorAs(t, err, &slotErr)
		})
	}
}

func TestEveryAcceptedSlotIsOnTheGrid(t *testing.T) {
	f := newFixture(t)
	day := f.local(t, "2025-03-01 00:00")
	dayStart := day.Add(8*time.Hour + 30*time.Minute)

	accepted := 0
	for start := day; start.Before(day.Add(24 * time.Hour)); start = start.Add(5 * time.Minute) {
		end := start.Add(75 * time.Minute)
		if f.courts.ValidateSlot(start, end) != nil {
			continue
		}
		accepted++
		assert.Zero(t, start.Sub(dayStart)%(75*time.Minute), start)
		assert.False(t, end.After(day.Add(22*time.Hour+15*time.Minute)), start)
	}
	assert.Equal(t, 11, accepted)
}

func TestReserveConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := f.local(t, "2025-02-28 11:00")

	first, err := f.courts.Reserve(ctx, f.actor(f.p1), ReserveInput{Court: "1", StartsAt: at})
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusReserved, first.Status)
	assert.Equal(t, []uuid.UUID{f.p1}, first.Participants)

	_, err = f.courts.Reserve(ctx, f.actor(f.p2), ReserveInput{Court: "1", StartsAt: at})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = f.courts.Reserve(ctx, f.actor(f.p2), ReserveInput{Court: "2", StartsAt: at})
	require.NoError(t, err)
}

func TestReserveRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.courts.Reserve(ctx, f.actor(f.p1), ReserveInput{Court: "1", StartsAt: f.local(t, "2025-03-03 11:00")})
	requireValidation("starts_at")(t, err)

	_, err = f.courts.Reserve(ctx, f.admin, ReserveInput{Court: "1", StartsAt: f.local(t, "2025-03-03 11:00")})
	require.NoError(t, err, "admins book beyond the horizon")

	_, err = f.courts.Reserve(ctx, f.actor(f.p1), ReserveInput{Court: "1", StartsAt: f.local(t, "2025-02-27 08:30")})
	requireValidation("starts_at")(t, err)

	_, err = f.courts.Reserve(ctx, f.actor(f.p1), ReserveInput{Court: "9", StartsAt: f.local(t, "2025-02-28 11:00")})
	requireValidation("court")(t, err)

	_, err = f.courts.Reserve(ctx, f.actor(f.p1), ReserveInput{
		Court:        "1",
		StartsAt:     f.local(t, "2025-02-28 11:00"),
		Participants: []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()},
	})
	requireValidation("participants")(t, err)
}

func TestConcurrentReservationsNeverOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := f.local(t, "2025-02-28 12:15")

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.courts.Reserve(ctx, f.actor(uuid.New()), ReserveInput{Court: "1", StartsAt: at})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			var conflict *ConflictError
			if assert.ErrorAs(t, err, &conflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)

	all, err := f.courts.ListReservations(ctx, model.ReservationFilter{Court: "1"})
	require.NoError(t, err)
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			assert.False(t, all[i].Overlaps(all[j].StartsAt, all[j].EndsAt))
		}
	}
}

func TestCancelReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := f.local(t, "2025-02-28 11:00")

	res, err := f.courts.Reserve(ctx, f.actor(f.p1), ReserveInput{Court: "1", StartsAt: at})
	require.NoError(t, err)

	_, err = f.courts.CancelReservation(ctx, f.actor(f.p2), res.ID)
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)

	cancelled, err := f.courts.CancelReservation(ctx, f.actor(f.p1), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusCancelled, cancelled.Status)
	assert.Equal(t, f.p1, *cancelled.CancelledBy)

	_, err = f.courts.Reserve(ctx, f.actor(f.p2), ReserveInput{Court: "1", StartsAt: at})
	require.NoError(t, err, "a cancelled slot can be booked again")

	_, err = f.courts.CancelReservation(ctx, f.admin, uuid.New())
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestMatchReservationCannotBeCancelledByPlayer(t *testing.T) {
	f := newFixture(t)
	m := f.createScheduled(t, f.local(t, "2025-02-28 18:30"), nil)
	res := f.liveReservation(t, m.ID)

	// бронь матча создал администратор, игрок не может её снять напрямую
	_, err := f.courts.CancelReservation(context.Background(), f.actor(f.p1), res.ID)
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)
}

func TestBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	otherLeague := uuid.New()

	_, err := f.courts.CreateBlock(ctx, f.actor(f.p1), BlockInput{})
	var forbidden *ForbiddenError
	require.ErrorAs(t, err, &forbidden)

	_, err = f.courts.CreateBlock(ctx, f.admin, BlockInput{
		Courts:      []string{"7"},
		StartsAt:    f.local(t, "2025-02-28 18:00"),
		EndsAt:      f.local(t, "2025-02-28 17:00"),
		ContextType: "party",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)

	block, err := f.courts.CreateBlock(ctx, f.admin, BlockInput{
		Courts:      []string{"1"},
		StartsAt:    f.local(t, "2025-02-28 17:15"),
		EndsAt:      f.local(t, "2025-02-28 22:15"),
		ContextType: model.ContextTypeLeague,
		ContextID:   &f.league.ID,
		Notes:       "league night",
	})
	require.NoError(t, err)

	at := f.local(t, "2025-02-28 18:30")
	slot := SlotRequest{Court: "1", StartsAt: at, EndsAt: at.Add(75 * time.Minute)}

	tests := []struct {
		name    string
		kind    model.ReservationType
		refs    []model.ContextRef
		blocked bool
	}{
		{name: "manual booking", kind: model.ReservationTypeManual, blocked: true},
		{name: "match of the same league", kind: model.ReservationTypeMatch,
			refs: []model.ContextRef{{Type: model.ContextTypeLeague, ID: f.league.ID}}},
		{name: "match of another league", kind: model.ReservationTypeMatch,
			refs: []model.ContextRef{{Type: model.ContextTypeLeague, ID: otherLeague}}, blocked: true},
		{name: "tournament with the same id", kind: model.ReservationTypeMatch,
			refs: []model.ContextRef{{Type: model.ContextTypeTournament, ID: f.league.ID}}, blocked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := slot
			req.Kind = tt.kind
			req.Contexts = tt.refs
			req.BypassHorizon = true
			err := f.courts.EnsureAvailability(ctx, req)
			if !tt.blocked {
				require.NoError(t, err)
				return
			}
			var blocked *BlockedError
			require.ErrorAs(t, err, &blocked)
			assert.Equal(t, block.ID, blocked.BlockID)
		})
	}

	req := slot
	req.Court = "2"
	req.Kind = model.ReservationTypeManual
	assert.NoError(t, f.courts.EnsureAvailability(ctx, req), "block covers court 1 only")

	m := f.createScheduled(t, at, nil)
	assert.Equal(t, "1", *m.Court, "league match may use its own league's block")

	require.NoError(t, f.courts.DeleteBlock(ctx, f.admin, block.ID))
	blocks, err := f.courts.ListBlocks(ctx, f.local(t, "2025-02-28 00:00"), f.local(t, "2025-03-01 00:00"))
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestAutoAssignCourt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := f.local(t, "2025-02-28 13:30")

	court, err := f.courts.AutoAssignCourt(ctx, at, ptr("2"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "2", court)

	_, err = f.courts.Reserve(ctx, f.admin, ReserveInput{Court: "1", StartsAt: at})
	require.NoError(t, err)

	court, err = f.courts.AutoAssignCourt(ctx, at, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "2", court)

	_, err = f.courts.Reserve(ctx, f.admin, ReserveInput{Court: "2", StartsAt: at})
	require.NoError(t, err)

	_, err = f.courts.AutoAssignCourt(ctx, at, nil, nil, nil)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = f.courts.AutoAssignCourt(ctx, at.Add(10*time.Minute), nil, nil, nil)
	var slotErr *InvalidSlotError
	require.ErrorAs(t, err, &slotErr)
}

func TestAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.courts.Reserve(ctx, f.actor(f.p1), ReserveInput{Court: "1", StartsAt: f.local(t, "2025-02-28 09:45")})
	require.NoError(t, err)
	block, err := f.courts.CreateBlock(ctx, f.admin, BlockInput{
		StartsAt:    f.local(t, "2025-02-28 21:00"),
		EndsAt:      f.local(t, "2025-02-28 22:15"),
		ContextType: model.ContextTypeLesson,
	})
	require.NoError(t, err)

	slots, err := f.courts.Availability(ctx, f.local(t, "2025-02-28 15:00"), "")
	require.NoError(t, err)
	require.Len(t, slots, 22)

	first := slots[0]
	assert.Equal(t, "1", first.Court)
	assert.True(t, first.StartsAt.Equal(f.local(t, "2025-02-28 08:30")))
	assert.Equal(t, model.SlotStateFree, first.State)

	assert.Equal(t, model.SlotStateBooked, slots[1].State)
	assert.Equal(t, res.ID, *slots[1].ReservationID)

	last := slots[len(slots)-1]
	assert.Equal(t, "2", last.Court)
	assert.Equal(t, model.SlotStateBlocked, last.State)
	assert.Equal(t, block.ID, *last.BlockID)

	slots, err = f.courts.Availability(ctx, f.local(t, "2025-02-28 15:00"), "2")
	require.NoError(t, err)
	assert.Len(t, slots, 11)
	assert.Equal(t, model.SlotStateFree, slots[1].State)
}
