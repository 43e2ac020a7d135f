//go:build integration

package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Freeeeeet/club_league/internal/app"
	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository"
	"github.com/Freeeeeet/club_league/internal/repository/base"
)

// Запуск: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repository/
func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, migrator.Run(ctx))
	return pool
}

func newCategory(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `INSERT INTO categories (id, name) VALUES ($1, $2)`, id, "integration "+id.String()[:8])
	require.NoError(t, err)
	return id
}

func reservationAt(court string, start time.Time) *model.CourtReservation {
	return &model.CourtReservation{
		ID:        uuid.New(),
		Court:     court,
		StartsAt:  start,
		EndsAt:    start.Add(75 * time.Minute),
		Status:    model.ReservationStatusReserved,
		Type:      model.ReservationTypeManual,
		CreatedBy: uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
}

func TestMatchUpdateRejectsStaleVersion(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	matches := repository.NewMatchRepository(pool)

	m := &model.Match{
		ID:         uuid.New(),
		CategoryID: newCategory(t, pool),
		Players:    [2]uuid.UUID{uuid.New(), uuid.New()},
		Status:     model.MatchStatusPending,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, matches.Create(ctx, m))
	require.EqualValues(t, 1, m.Version)

	stale := *m
	m.Status = model.MatchStatusExpired
	m.UpdatedAt = time.Now().UTC()
	require.NoError(t, matches.Update(ctx, m))
	assert.EqualValues(t, 2, m.Version)

	stale.UpdatedAt = time.Now().UTC()
	err := matches.Update(ctx, &stale)
	assert.True(t, errors.Is(err, base.ErrStaleWrite), "got %v", err)

	stored, err := matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusExpired, stored.Status)
	assert.EqualValues(t, 2, stored.Version)
}

func TestReservationOverlapTranslated(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	reservations := repository.NewReservationRepository(pool)

	court := "it-" + uuid.NewString()[:8]
	start := time.Date(2025, 3, 1, 17, 30, 0, 0, time.UTC)
	require.NoError(t, reservations.Create(ctx, reservationAt(court, start)))

	err := reservations.Create(ctx, reservationAt(court, start.Add(30*time.Minute)))
	assert.True(t, errors.Is(err, base.ErrOverlap), "got %v", err)

	// смежный слот и отменённая бронь не пересекаются
	require.NoError(t, reservations.Create(ctx, reservationAt(court, start.Add(75*time.Minute))))
	cancelled := reservationAt(court, start)
	cancelled.Status = model.ReservationStatusCancelled
	require.NoError(t, reservations.Create(ctx, cancelled))
}

func TestLockCourtDaySerializesTransactions(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	reservations := repository.NewReservationRepository(pool)
	tx := base.NewTxManager(pool)

	court := "it-" + uuid.NewString()[:8]
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	const hold = 300 * time.Millisecond

	locked := make(chan struct{})
	done := make(chan error, 1)
	var releasedAt time.Time
	go func() {
		done <- tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := reservations.LockCourtDay(ctx, court, day); err != nil {
				return err
			}
			close(locked)
			time.Sleep(hold)
			releasedAt = time.Now()
			return nil
		})
	}()

	select {
	case <-locked:
	case err := <-done:
		t.Fatalf("first transaction finished before taking the lock: %v", err)
	}

	var acquiredAt time.Time
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := reservations.LockCourtDay(ctx, court, day); err != nil {
			return err
		}
		acquiredAt = time.Now()
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.False(t, acquiredAt.Before(releasedAt), "second lock taken while the first transaction was open")

	// другой день того же корта не ждёт
	require.NoError(t, tx.WithinTx(ctx, func(ctx context.Context) error {
		return reservations.LockCourtDay(ctx, court, day.AddDate(0, 0, 1))
	}))
}
