package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request is the generation job sent to the external worker. The worker's
// acknowledgement only means the job was accepted; the result arrives later
// through the document store.
type Request struct {
	UserID           string   `json:"userId"`
	DisplayName      string   `json:"displayName"`
	Categories       []string `json:"categories"`
	DailyMinutes     int      `json:"dailyMinutes"`
	HistorySummaries []string `json:"historySummaries"`
}

// Client posts generation jobs to the configured webhook URL.
type Client struct {
	URL    string
	client *http.Client
}

// NewClient creates a webhook client with a bounded request timeout.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		URL:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Send submits one generation job. A nil error means the job was accepted,
// never that content was generated.
func (c *Client) Send(ctx context.Context, r Request) error {
	if c.URL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
