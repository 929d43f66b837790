// Package ocr calls the date-extraction service used by the scan flow:
// a product label photo goes in, a parsed expiry date comes out.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	"github.com/mohamedirsath07/ExpireGuard/pkg/retry"
)

// Result is the extraction outcome. Confidence is 0..1; callers decide
// whether a low-confidence date needs manual verification.
type Result struct {
	Success    bool        `json:"success"`
	ExpiryDate domain.Date `json:"expiryDate"`
	Confidence float64     `json:"confidence"`
	Message    string      `json:"message,omitempty"`
}

// Client posts label images to the OCR service.
type Client struct {
	url    string
	client *http.Client
	retry  retry.Config
	logger *slog.Logger
}

// NewClient creates a client for the OCR endpoint at url.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	c := &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
	c.retry = retry.Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		OnRetry: func(attempt int, err error) {
			logger.Warn("ocr request failed, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		},
	}
	return c
}

// Extract uploads the image and returns the parsed expiry date. Transient
// transport failures are retried; an unsuccessful extraction (no date found
// on the label) is not an error.
func (c *Client) Extract(ctx context.Context, filename string, image io.Reader) (Result, error) {
	body, contentType, err := encodeUpload(filename, image)
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = retry.Do(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build ocr request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("post image: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("ocr service returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			io.Copy(io.Discard, resp.Body)
			// Client errors won't heal on retry; surface via result instead.
			result = Result{Success: false, Message: fmt.Sprintf("ocr rejected upload with status %d", resp.StatusCode)}
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decode ocr response: %w", err)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// encodeUpload builds the multipart body once so retries reuse it.
func encodeUpload(filename string, image io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
