package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client provides an HTTP client for the bugstream API
type Client struct {
	config     Config
	httpClient *http.Client
	token      string
	baseURL    *url.URL
}

// NewClient creates a new bugstream HTTP client
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	if config.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required")
	}
	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    baseURL,
	}, nil
}

// Authenticate obtains a token from the server and stores it for
// subsequent requests.
func (c *Client) Authenticate(ctx context.Context, userID string, admin bool) (*AuthResponse, error) {
	authReq := map[string]any{
		"userId": userID,
		"admin":  admin,
	}

	var authResp AuthResponse
	if err := c.doRequest(ctx, "POST", "/api/v1/auth/login", authReq, &authResp, false); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	c.token = authResp.Token
	return &authResp, nil
}

// PublishBugEvent sends a bug update event to the server for fan-out
func (c *Client) PublishBugEvent(ctx context.Context, req PublishBugRequest) (*PublishResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	var resp PublishResponse
	if err := c.doRequest(ctx, "POST", "/api/v1/events/bugs", req, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to publish bug event: %w", err)
	}
	return &resp, nil
}

// PublishAnalyticsEvent sends an analytics update event to the server for fan-out
func (c *Client) PublishAnalyticsEvent(ctx context.Context, req PublishAnalyticsRequest) (*PublishResponse, error) {
	if c.token == "" {
		return nil, fmt.Errorf("client not authenticated - call Authenticate() first")
	}

	var resp PublishResponse
	if err := c.doRequest(ctx, "POST", "/api/v1/events/analytics", req, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to publish analytics event: %w", err)
	}
	return &resp, nil
}

// GetStats returns the server's streaming statistics
func (c *Client) GetStats(ctx context.Context) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.doRequest(ctx, "GET", "/api/v1/stats", nil, &resp, true); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &resp, nil
}

// GetHealth returns the health status of the bugstream server
func (c *Client) GetHealth(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, "GET", "/api/v1/health", nil, &resp, false); err != nil {
		return nil, fmt.Errorf("failed to get health status: %w", err)
	}
	return &resp, nil
}

// doRequest performs an HTTP request with optional authentication
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody, respBody any, requireAuth bool) error {
	fullURL := c.baseURL.ResolveReference(&url.URL{Path: path})

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(bodyBytes))
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error)
	}

	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// IsAuthenticated returns whether the client has a token
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// Token returns the current authentication token
func (c *Client) Token() string {
	return c.token
}

// SetToken sets the authentication token (useful for token reuse)
func (c *Client) SetToken(token string) {
	c.token = token
}
