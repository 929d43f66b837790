package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
)

// HTTPProvider talks to the hosted inventory REST API.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates a provider for the inventory API at baseURL
// (e.g. "https://api.example.com/api/products").
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) List(ctx context.Context) ([]domain.InventoryItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build inventory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch inventory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inventory API returned status %d", resp.StatusCode)
	}

	var items []domain.InventoryItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode inventory response: %w", err)
	}
	return items, nil
}

func (p *HTTPProvider) Create(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	body, err := json.Marshal(item)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("encode item: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("create item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return domain.InventoryItem{}, fmt.Errorf("inventory API returned status %d", resp.StatusCode)
	}

	var created domain.InventoryItem
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("decode created item: %w", err)
	}
	return created, nil
}

func (p *HTTPProvider) Delete(ctx context.Context, id string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/"+id, nil)
	if err != nil {
		return false, fmt.Errorf("build delete request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("delete item %s: %w", id, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		return false, fmt.Errorf("inventory API returned status %d", resp.StatusCode)
	}
	return true, nil
}
