package auth

import (
	"net/url"
	"strings"
	"testing"
)

func TestBuildAuthURL(t *testing.T) {
	cfg := &Config{
		ClientID:    "test_client_id",
		RedirectURI: "http://127.0.0.1:8888/callback",
		Scopes:      []string{"user-read-private", "user-library-read"},
	}
	pkce := &PKCE{Verifier: "v", Challenge: "test_challenge", State: "test_state"}

	u, err := url.Parse(cfg.BuildAuthURL(pkce))
	if err != nil {
		t.Fatalf("BuildAuthURL() produced invalid URL: %v", err)
	}
	if u.Scheme != "https" || u.Host != "accounts.spotify.com" || u.Path != "/authorize" {
		t.Errorf("base URL = %s://%s%s", u.Scheme, u.Host, u.Path)
	}

	q := u.Query()
	tests := []struct {
		param string
		want  string
	}{
		{"client_id", "test_client_id"},
		{"response_type", "code"},
		{"redirect_uri", "http://127.0.0.1:8888/callback"},
		{"code_challenge_method", "S256"},
		{"code_challenge", "test_challenge"},
		{"state", "test_state"},
		{"scope", "user-read-private user-library-read"},
	}
	for _, tt := range tests {
		if got := q.Get(tt.param); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.param, got, tt.want)
		}
	}
}

func TestBuildAuthURLNoScopes(t *testing.T) {
	cfg := &Config{ClientID: "id", RedirectURI: DefaultRedirectURI}
	u, _ := url.Parse(cfg.BuildAuthURL(&PKCE{Challenge: "c", State: "s"}))
	if scope := u.Query().Get("scope"); scope != "" {
		t.Errorf("scope = %q, want empty", scope)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("my_client_id", "")
	if cfg.RedirectURI != DefaultRedirectURI {
		t.Errorf("RedirectURI = %q, want default", cfg.RedirectURI)
	}
	if len(cfg.Scopes) != len(DefaultScopes) {
		t.Errorf("Scopes length = %d, want %d", len(cfg.Scopes), len(DefaultScopes))
	}

	joined := strings.Join(cfg.Scopes, " ")
	for _, scope := range []string{"user-library-read", "playlist-modify-private", "user-modify-playback-state"} {
		if !strings.Contains(joined, scope) {
			t.Errorf("default scopes missing %s", scope)
		}
	}
}

func TestCallbackAddr(t *testing.T) {
	tests := []struct {
		redirect string
		addr     string
		path     string
		wantErr  bool
	}{
		{"http://127.0.0.1:8888/callback", "127.0.0.1:8888", "/callback", false},
		{"http://localhost:9000", "localhost:9000", "/", false},
		{"http://localhost/callback", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.redirect, func(t *testing.T) {
			addr, path, err := NewConfig("id", tt.redirect).CallbackAddr()
			if (err != nil) != tt.wantErr {
				t.Fatalf("CallbackAddr() error = %v, wantErr %v", err, tt.wantErr)
			}
			if addr != tt.addr || path != tt.path {
				t.Errorf("CallbackAddr() = %q, %q, want %q, %q", addr, path, tt.addr, tt.path)
			}
		})
	}
}
