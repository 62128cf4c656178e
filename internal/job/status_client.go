package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// StatusClient checks the status of a remote job
type StatusClient interface {
	Check(ctx context.Context, jobID string) (StatusReport, error)
}

// HTTPStatusClient polls GET /api/jobs/{id}/status on the backend
type HTTPStatusClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPStatusClient creates a client for baseURL. Per-request timeouts
// come from the caller's context.
func NewHTTPStatusClient(baseURL string) *HTTPStatusClient {
	return &HTTPStatusClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (c *HTTPStatusClient) Check(ctx context.Context, jobID string) (StatusReport, error) {
	op := "check job " + jobID
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/jobs/"+url.PathEscape(jobID)+"/status", nil)
	if err != nil {
		return StatusReport{}, &TransportError{Op: op, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StatusReport{}, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return StatusReport{}, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return StatusReport{}, &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	var report StatusReport
	if err := json.Unmarshal(body, &report); err != nil {
		return StatusReport{}, &TransportError{Op: op, Err: fmt.Errorf("parse status: %w", err)}
	}
	return report, nil
}
