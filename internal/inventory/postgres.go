package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	expiry_date DATE,
	category    TEXT NOT NULL DEFAULT 'Others',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_products_expiry ON products (expiry_date);
`

// PostgresProvider stores inventory items in Postgres for self-hosted
// deployments.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPool creates a pgxpool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// NewPostgresProvider wraps a pgxpool with the Provider interface.
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// EnsureSchema creates the products table if it does not exist.
func (p *PostgresProvider) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure products schema: %w", err)
	}
	return nil
}

func (p *PostgresProvider) List(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, expiry_date, category
		FROM products
		ORDER BY expiry_date NULLS LAST, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		var item domain.InventoryItem
		var expiry *time.Time
		var category string
		if err := rows.Scan(&item.ID, &item.Name, &expiry, &category); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if expiry != nil {
			item.ExpiryDate = domain.DateOf(*expiry)
		}
		item.Category = domain.Category(category)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (p *PostgresProvider) Create(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if !item.Category.Valid() {
		item.Category = domain.CategoryOthers
	}

	var expiry *time.Time
	if !item.ExpiryDate.IsZero() {
		t := item.ExpiryDate.Time()
		expiry = &t
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO products (id, name, expiry_date, category)
		VALUES ($1, $2, $3, $4)
	`, item.ID, item.Name, expiry, string(item.Category))
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("create product %s: %w", item.ID, err)
	}
	return item, nil
}

func (p *PostgresProvider) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete product %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
