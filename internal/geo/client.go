package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an ip-api.com style country lookup client
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Config for the lookup client
type Config struct {
	Endpoint string // e.g., http://ip-api.com/json/
	Timeout  time.Duration
}

// lookupResponse is the subset of the API response we read
type lookupResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
}

// NewClient creates a new lookup client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	endpoint := cfg.Endpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Country returns the country name for an IP address or host name
func (c *Client) Country(ctx context.Context, host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("empty host")
	}

	reqURL := c.endpoint + url.PathEscape(host) + "?fields=status,message,country"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error: %s (status %d)", string(body), resp.StatusCode)
	}

	var result lookupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Status != "success" {
		errMsg := result.Message
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return "", fmt.Errorf("lookup failed: %s", errMsg)
	}

	return result.Country, nil
}
