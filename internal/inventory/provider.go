// Package inventory provides access to the product inventory backing the
// expiry checks. Two implementations exist: an HTTP client for the hosted
// inventory API and a Postgres repository for self-hosted deployments.
package inventory

import (
	"context"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
)

// Provider abstracts where inventory items live.
type Provider interface {
	// List returns a point-in-time snapshot of all items.
	List(ctx context.Context) ([]domain.InventoryItem, error)
	// Create stores a new item and returns it with its assigned ID.
	Create(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error)
	// Delete removes an item. It returns false when no such item exists.
	Delete(ctx context.Context, id string) (bool, error)
}
