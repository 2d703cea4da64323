//go:build integration

package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/database"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: TEST_DB_DSN=postgres://... go test -tags=integration ./internal/repository/
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()

	db, err := database.OpenSQL(dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Migrate(ctx, db))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedUser(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	id := uuid.NewString()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`, id, "user "+id[:8], id+"@example.com")
	require.NoError(t, err)
	return id
}

func seedPgEvent(t *testing.T, s *PgStore, pool *pgxpool.Pool, limit int) *model.Event {
	t.Helper()
	catID := uuid.NewString()
	_, err := pool.Exec(context.Background(), `INSERT INTO categories (id, name) VALUES ($1, $2)`, catID, "cat "+catID[:8])
	require.NoError(t, err)

	ev := &model.Event{
		ID:                uuid.NewString(),
		Title:             "Integration",
		Annotation:        "an annotation long enough to pass",
		Description:       "a description long enough to pass",
		CategoryID:        catID,
		InitiatorID:       seedUser(t, pool),
		ParticipantLimit:  limit,
		RequestModeration: true,
		EventDate:         time.Now().Add(48 * time.Hour).UTC().Truncate(time.Microsecond),
		CreatedOn:         time.Now().UTC().Truncate(time.Microsecond),
		State:             model.StatePublished,
	}
	require.NoError(t, s.Events().Save(context.Background(), ev))
	return ev
}

func TestPgStore_EventRoundTrip(t *testing.T) {
	pool := newTestPool(t)
	s := NewPgStore(pool)
	ctx := context.Background()
	ev := seedPgEvent(t, s, pool, 3)

	n, err := s.Events().AddConfirmed(ctx, ev.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ev.Title = "Renamed"
	ev.ConfirmedRequests = 0
	require.NoError(t, s.Events().Save(ctx, ev))

	got, err := s.Events().Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, 1, got.ConfirmedRequests)

	_, err = s.Events().GetByInitiator(ctx, ev.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPgStore_DuplicateRequest(t *testing.T) {
	pool := newTestPool(t)
	s := NewPgStore(pool)
	ctx := context.Background()
	ev := seedPgEvent(t, s, pool, 0)
	requester := seedUser(t, pool)

	first := &model.ParticipationRequest{ID: uuid.NewString(), RequesterID: requester, EventID: ev.ID, Created: time.Now(), Status: model.RequestPending}
	require.NoError(t, s.Requests().Save(ctx, first))

	dup := &model.ParticipationRequest{ID: uuid.NewString(), RequesterID: requester, EventID: ev.ID, Created: time.Now(), Status: model.RequestPending}
	assert.ErrorIs(t, s.Requests().Save(ctx, dup), ErrDuplicate)
}

func TestPgStore_CapacityCheckConstraint(t *testing.T) {
	pool := newTestPool(t)
	s := NewPgStore(pool)
	ev := seedPgEvent(t, s, pool, 1)

	_, err := s.Events().AddConfirmed(context.Background(), ev.ID, 2)
	assert.Error(t, err)
}

func TestPgStore_WithEventLockSerializes(t *testing.T) {
	pool := newTestPool(t)
	s := NewPgStore(pool)
	ctx := context.Background()
	ev := seedPgEvent(t, s, pool, 5)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		requester := seedUser(t, pool)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithEventLock(ctx, ev.ID, func(tx Store, locked *model.Event) error {
				if locked.IsFull() {
					return nil
				}
				pr := &model.ParticipationRequest{
					ID: uuid.NewString(), RequesterID: requester, EventID: locked.ID,
					Created: time.Now(), Status: model.RequestConfirmed,
				}
				if err := tx.Requests().Save(ctx, pr); err != nil {
					return err
				}
				_, err := tx.Events().AddConfirmed(ctx, locked.ID, 1)
				return err
			})
		}()
	}
	wg.Wait()

	got, err := s.Events().Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ConfirmedRequests)

	list, err := s.Requests().ListByEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestPgStore_WithEventLockRollsBack(t *testing.T) {
	pool := newTestPool(t)
	s := NewPgStore(pool)
	ctx := context.Background()
	ev := seedPgEvent(t, s, pool, 5)

	err := s.WithEventLock(ctx, ev.ID, func(tx Store, locked *model.Event) error {
		if _, err := tx.Events().AddConfirmed(ctx, locked.ID, 1); err != nil {
			return err
		}
		return model.Conflict("abort")
	})
	assert.ErrorIs(t, err, model.ErrConflict)

	got, err := s.Events().Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ConfirmedRequests)
}

func TestPgStore_SearchTextIsLiteral(t *testing.T) {
	pool := newTestPool(t)
	s := NewPgStore(pool)
	ctx := context.Background()

	ev := seedPgEvent(t, s, pool, 0)
	ev.Annotation = "discount 100% for members_only " + ev.ID
	require.NoError(t, s.Events().Save(ctx, ev))

	hit, err := s.Events().Search(ctx, model.EventFilter{Text: "100% for members_only " + ev.ID}, model.DefaultPage)
	require.NoError(t, err)
	require.Len(t, hit, 1)
	assert.Equal(t, ev.ID, hit[0].ID)

	miss, err := s.Events().Search(ctx, model.EventFilter{Text: "100_ for members%only " + ev.ID}, model.DefaultPage)
	require.NoError(t, err)
	assert.Empty(t, miss)
}
