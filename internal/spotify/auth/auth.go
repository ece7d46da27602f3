package auth

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// SpotifyAuthURL is the Spotify authorization endpoint.
	SpotifyAuthURL = "https://accounts.spotify.com/authorize"

	// SpotifyTokenURL is the Spotify token endpoint.
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"

	// DefaultRedirectURI is the default callback URI for the local server.
	DefaultRedirectURI = "http://127.0.0.1:8888/callback"
)

// DefaultScopes cover playback control, the library sections of the home
// screen and the temporary playlists used to play mixes.
var DefaultScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"user-read-recently-played",
	"user-read-private",
	"user-library-read",
	"user-follow-read",
	"playlist-read-private",
	"playlist-modify-private",
	"playlist-modify-public",
}

// Config holds the OAuth configuration.
type Config struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
}

// NewConfig creates a new OAuth configuration with defaults.
func NewConfig(clientID, redirectURI string) *Config {
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}
	return &Config{
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scopes:      DefaultScopes,
	}
}

// BuildAuthURL constructs the Spotify authorization URL with PKCE parameters.
func (c *Config) BuildAuthURL(pkce *PKCE) string {
	u, _ := url.Parse(SpotifyAuthURL)

	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("code_challenge_method", "S256")
	q.Set("code_challenge", pkce.Challenge)
	q.Set("state", pkce.State)
	if len(c.Scopes) > 0 {
		q.Set("scope", strings.Join(c.Scopes, " "))
	}

	u.RawQuery = q.Encode()
	return u.String()
}

// CallbackAddr splits the redirect URI into the listen address and path the
// local callback server must serve.
func (c *Config) CallbackAddr() (addr, path string, err error) {
	u, err := url.Parse(c.RedirectURI)
	if err != nil {
		return "", "", fmt.Errorf("invalid redirect_uri: %w", err)
	}
	if u.Port() == "" {
		return "", "", fmt.Errorf("redirect_uri %q has no port", c.RedirectURI)
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	return u.Host, path, nil
}
