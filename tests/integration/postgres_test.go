//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	"github.com/mohamedirsath07/ExpireGuard/internal/inventory"
)

func newPostgresProvider(t *testing.T) *inventory.PostgresProvider {
	t.Helper()
	ctx := context.Background()

	pool, err := inventory.NewPool(ctx, testPostgresDSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	provider := inventory.NewPostgresProvider(pool)
	require.NoError(t, provider.EnsureSchema(ctx))
	t.Cleanup(func() {
		pool.Exec(ctx, `TRUNCATE products`) //nolint:errcheck
	})
	return provider
}

func TestPostgres_CreateListDelete(t *testing.T) {
	provider := newPostgresProvider(t)
	ctx := context.Background()

	created, err := provider.Create(ctx, domain.InventoryItem{
		Name:       "Milk",
		ExpiryDate: domain.NewDate(2026, time.September, 2),
		Category:   domain.CategoryGroceries,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	items, err := provider.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].Name)
	assert.Equal(t, domain.NewDate(2026, time.September, 2), items[0].ExpiryDate)
	assert.Equal(t, domain.CategoryGroceries, items[0].Category)

	ok, err := provider.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = provider.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second delete finds nothing")
}

func TestPostgres_ItemWithoutExpiryDate(t *testing.T) {
	provider := newPostgresProvider(t)
	ctx := context.Background()

	_, err := provider.Create(ctx, domain.InventoryItem{Name: "Salt"})
	require.NoError(t, err)

	items, err := provider.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].ExpiryDate.IsZero())
	assert.Equal(t, domain.CategoryOthers, items[0].Category, "unknown category defaults to Others")
}

func TestPostgres_ListOrdersByExpiry(t *testing.T) {
	provider := newPostgresProvider(t)
	ctx := context.Background()

	for _, it := range []domain.InventoryItem{
		{Name: "Later", ExpiryDate: domain.NewDate(2026, time.December, 1), Category: domain.CategoryFood},
		{Name: "NoDate", Category: domain.CategoryOthers},
		{Name: "Sooner", ExpiryDate: domain.NewDate(2026, time.September, 1), Category: domain.CategoryFood},
	} {
		_, err := provider.Create(ctx, it)
		require.NoError(t, err)
	}

	items, err := provider.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Sooner", items[0].Name)
	assert.Equal(t, "Later", items[1].Name)
	assert.Equal(t, "NoDate", items[2].Name, "dateless items sort last")
}
