package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStateStore(t *testing.T) StateStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStateStore(client)
}

func TestStateStore_AbsentValuesReadAsZero(t *testing.T) {
	store := newTestStateStore(t)
	ctx := context.Background()

	last, err := store.LastDispatch(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	_, ok, err := store.WaitingVersion(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.ActiveVersion(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	dismissed, err := store.InstallDismissedAt(ctx)
	require.NoError(t, err)
	assert.True(t, dismissed.IsZero())
}

func TestStateStore_DispatchTimestampRoundTrip(t *testing.T) {
	store := newTestStateStore(t)
	ctx := context.Background()

	at := time.Date(2026, time.August, 28, 9, 30, 0, 123456000, time.UTC)
	require.NoError(t, store.SetLastDispatch(ctx, at))

	got, err := store.LastDispatch(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(at), "expected %v, got %v", at, got)
}

func TestStateStore_VersionSlots(t *testing.T) {
	store := newTestStateStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetWaitingVersion(ctx, 3))
	v, ok, err := store.WaitingVersion(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, v)

	require.NoError(t, store.SetActiveVersion(ctx, 2))
	v, ok, err = store.ActiveVersion(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	require.NoError(t, store.ClearWaitingVersion(ctx))
	_, ok, err = store.WaitingVersion(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "waiting slot should be empty after clear")

	// Clearing an already-empty slot is not an error.
	require.NoError(t, store.ClearWaitingVersion(ctx))
}
