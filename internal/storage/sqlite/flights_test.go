package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/preflight/pkg/logger"
)

func newTestStorage(t *testing.T) *FlightStorage {
	t.Helper()
	db, err := Open(":memory:", logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewFlightStorage(db, logger.NewNop())
	require.NoError(t, err)
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	planned := time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)

	f := &Flight{UserID: "u1", Departure: "KJFK", Arrival: "KBOS", Waypoints: []string{"KPVD"}, PlannedAt: &planned, Notes: "morning hop"}
	require.NoError(t, s.Create(ctx, f))
	assert.NotEmpty(t, f.ID)
	assert.False(t, f.CreatedAt.IsZero())

	got, err := s.Get(ctx, "u1", f.ID)
	require.NoError(t, err)
	assert.Equal(t, "KJFK", got.Departure)
	assert.Equal(t, []string{"KPVD"}, got.Waypoints)
	require.NotNil(t, got.PlannedAt)
	assert.True(t, planned.Equal(*got.PlannedAt))
	assert.Equal(t, "morning hop", got.Notes)
	assert.Equal(t, []string{"KJFK", "KPVD", "KBOS"}, got.Airports())
}

func TestOwnerIsolation(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	f := &Flight{UserID: "u1", Departure: "KJFK", Arrival: "KBOS"}
	require.NoError(t, s.Create(ctx, f))

	_, err := s.Get(ctx, "u2", f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "u2", f.ID), ErrNotFound)

	list, err := s.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.Delete(ctx, "u1", f.ID))
	_, err = s.Get(ctx, "u1", f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByUserNewestFirst(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, dest := range []string{"KBOS", "KORD", "KLAX"} {
		require.NoError(t, s.Create(ctx, &Flight{UserID: "u1", Departure: "KJFK", Arrival: dest}))
	}
	require.NoError(t, s.Create(ctx, &Flight{UserID: "u2", Departure: "KJFK", Arrival: "KDEN"}))

	list, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "KLAX", list[0].Arrival)
	assert.Equal(t, "KBOS", list[2].Arrival)
	assert.Equal(t, []string{}, list[0].Waypoints)
	assert.Nil(t, list[0].PlannedAt)
}
