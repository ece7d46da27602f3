package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	nerrors "github.com/tessro/nocturne/internal/errors"
)

// DefaultBaseURL is the public lrclib instance.
const DefaultBaseURL = "https://lrclib.net"

// ErrMalformed reports an lrclib response that could not be decoded.
var ErrMalformed = errors.New("malformed lyrics response")

// Record is the subset of an lrclib track record the kiosk uses.
type Record struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Fetcher looks up lyrics for a track.
type Fetcher interface {
	Fetch(ctx context.Context, artist, track string) (*Record, error)
}

// Client is an lrclib API client. lrclib needs no credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an lrclib client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger.Named("lrclib")}
}

// Fetch returns the record for artist and track. A 404 yields
// ErrLyricsNotFound, an undecodable body ErrMalformed, and any other failure
// wraps ErrNetworkError.
func (c *Client) Fetch(ctx context.Context, artist, track string) (*Record, error) {
	q := url.Values{}
	q.Set("artist_name", artist)
	q.Set("track_name", track)
	u := c.baseURL + "/api/get?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nerrors.ErrNetworkError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("lyrics lookup", zap.String("artist", artist), zap.String("track", track), zap.Int("status", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nerrors.ErrLyricsNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: lrclib returned %d", nerrors.ErrNetworkError, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", nerrors.ErrNetworkError, err)
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &rec, nil
}
