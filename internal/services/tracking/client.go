package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 20 * time.Second

// Config captures the runtime settings required to talk to the tracking API.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Client wraps the production tracking API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a tracking client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// JobRequest is the summary payload posted when registering a production job.
type JobRequest struct {
	JobCode    string   `json:"jobCode"`
	StationID  string   `json:"stationId"`
	MaterialID string   `json:"materialId"`
	JobNumber  int64    `json:"jobNumber"`
	SheetID    string   `json:"sheetId"`
	ItemIDs    []string `json:"itemIds"`
	OrderIDs   []string `json:"orderIds"`
}

// CreateJob registers a production job and returns the tracking identifier.
func (c *Client) CreateJob(ctx context.Context, request JobRequest) (string, error) {
	if c.cfg.BaseURL == "" {
		return "", errors.New("create job: base url required")
	}
	if strings.TrimSpace(request.JobCode) == "" {
		return "", errors.New("create job: job code required")
	}

	encoded, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("create job: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/jobs", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("create job: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create job: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("create job: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create job: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("create job: decode response: %w", err)
	}
	if strings.TrimSpace(decoded.JobID) == "" {
		return "", errors.New("create job: response missing jobId")
	}
	return decoded.JobID, nil
}
