package surface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
)

// Webhook pushes the notification payload to an HTTP endpoint. This is the
// page-level delivery path, and also what the worker uses to render
// notifications requested while the page is backgrounded.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a Webhook surface for the given push endpoint.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *Webhook) Name() string { return "webhook" }

// Show POSTs the payload. 401/403 from the endpoint means the user never
// granted notification permission; that maps to PermissionDeniedError.
func (s *Webhook) Show(ctx context.Context, n *domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification push to %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &domain.PermissionDeniedError{Surface: s.Name()}
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("notification push to %s returned status %d", s.url, resp.StatusCode)
	}
	return nil
}
