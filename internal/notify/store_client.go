package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StoreClient talks to the backend's notification endpoints.
type StoreClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewStoreClient(baseURL string) *StoreClient {
	return &StoreClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// List returns every stored notification
func (c *StoreClient) List(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/notifications", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("list notifications (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("parse notifications: %w", err)
	}
	return records, nil
}

// MarkAllRead marks every stored notification read. Only a 2xx answer
// counts as success.
func (c *StoreClient) MarkAllRead(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/notifications/mark-read", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("mark read (status %d)", resp.StatusCode)
	}
	return nil
}
