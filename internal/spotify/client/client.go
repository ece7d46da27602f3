package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/spotify/auth"
)

// BaseURL is the Spotify Web API base URL.
const BaseURL = "https://api.spotify.com/v1"

// Options configures a Client. Zero values select production defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Endpoint   *auth.Endpoint
	Logger     *zap.Logger
}

// Client is a Spotify Web API client. Each call issues exactly one request;
// failures are returned to the caller rather than retried.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	storage    auth.TokenStore
	endpoint   *auth.Endpoint
	logger     *zap.Logger

	mu    sync.RWMutex
	token *auth.Token
}

// New creates a new Spotify client.
func New(clientID string, storage auth.TokenStore, opts Options) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		baseURL:    opts.BaseURL,
		clientID:   clientID,
		storage:    storage,
		endpoint:   opts.Endpoint,
		logger:     opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.baseURL == "" {
		c.baseURL = BaseURL
	}
	if c.endpoint == nil {
		c.endpoint = auth.DefaultEndpoint
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("spotify")
	return c
}

// LoadToken loads the token from storage.
func (c *Client) LoadToken() error {
	token, err := c.storage.Load()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return nil
}

// SetToken sets the current token and persists it.
func (c *Client) SetToken(token *auth.Token) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return c.storage.Save(token)
}

// IsAuthenticated returns true if there's a valid (non-expired) token.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != nil && !c.token.IsExpired()
}

// HasRefreshToken reports whether a refresh is possible.
func (c *Client) HasRefreshToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != nil && c.token.RefreshToken != ""
}

// Refresh exchanges the refresh token for a new access token, once.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == nil || c.token.RefreshToken == "" {
		return nerrors.ErrNoRefreshToken
	}

	newToken, err := c.endpoint.Refresh(ctx, c.clientID, c.token.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	c.logger.Debug("access token refreshed", zap.Time("expires_at", newToken.ExpiresAt))

	c.token = newToken
	return c.storage.Save(newToken)
}

// accessToken returns the current access token, refreshing it first if it
// has expired.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == nil {
		return "", nerrors.ErrNotAuthenticated
	}
	if token.IsExpired() {
		if err := c.Refresh(ctx); err != nil {
			return "", err
		}
		c.mu.RLock()
		token = c.token
		c.mu.RUnlock()
	}
	return token.AccessToken, nil
}

// Get performs a GET request to the Spotify API.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	_, err := c.request(ctx, http.MethodGet, path, nil, result)
	return err
}

// Post performs a POST request to the Spotify API.
func (c *Client) Post(ctx context.Context, path string, body any, result any) error {
	_, err := c.request(ctx, http.MethodPost, path, body, result)
	return err
}

// Put performs a PUT request to the Spotify API.
func (c *Client) Put(ctx context.Context, path string, body any, result any) error {
	_, err := c.request(ctx, http.MethodPut, path, body, result)
	return err
}

// Delete performs a DELETE request to the Spotify API.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.request(ctx, http.MethodDelete, path, nil, nil)
	return err
}

func (c *Client) request(ctx context.Context, method, path string, body any, result any) (int, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return 0, err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	fullURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", nerrors.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return resp.StatusCode, parseAPIError(resp.StatusCode, respBody)
	}
	if resp.StatusCode == http.StatusNoContent || result == nil || len(respBody) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil
}

// APIError represents a Spotify API error response.
type APIError struct {
	ErrorInfo struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.ErrorInfo.Message == "" {
		apiErr.ErrorInfo.Message = http.StatusText(status)
	}
	apiErr.ErrorInfo.Status = status
	return apiErr
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Spotify API error %d: %s", e.ErrorInfo.Status, e.ErrorInfo.Message)
}

// Is maps well-known statuses onto the shared sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case nerrors.ErrNotAuthenticated:
		return e.ErrorInfo.Status == http.StatusUnauthorized
	case nerrors.ErrRateLimited:
		return e.ErrorInfo.Status == http.StatusTooManyRequests
	case nerrors.ErrPremiumRequired:
		return e.ErrorInfo.Reason == "PREMIUM_REQUIRED"
	case nerrors.ErrNoActiveDevice:
		return e.ErrorInfo.Reason == "NO_ACTIVE_DEVICE"
	}
	return false
}

// StatusOf returns the HTTP status of an API error, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if nerrors.As(err, &apiErr) {
		return apiErr.ErrorInfo.Status
	}
	return 0
}

// BuildURL builds a URL with query parameters.
func BuildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	u, _ := url.Parse(path)
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
