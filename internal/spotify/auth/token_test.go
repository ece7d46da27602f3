package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestToken_ExpiredAt(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		token Token
		want  bool
	}{
		{"expired", Token{AccessToken: "a", ExpiresAt: now.Add(-time.Hour)}, true},
		{"within buffer", Token{AccessToken: "a", ExpiresAt: now.Add(30 * time.Second)}, true},
		{"valid", Token{AccessToken: "a", ExpiresAt: now.Add(time.Hour)}, false},
		{"no access token", Token{ExpiresAt: now.Add(time.Hour)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.ExpiredAt(now); got != tt.want {
				t.Errorf("ExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func tokenServer(t *testing.T, check func(r *http.Request), resp tokenResponse, status int) *Endpoint {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return &Endpoint{URL: srv.URL, HTTPClient: srv.Client()}
}

func TestEndpoint_ExchangeCode(t *testing.T) {
	ep := tokenServer(t, func(r *http.Request) {
		want := map[string]string{
			"grant_type":    "authorization_code",
			"code":          "test_code",
			"client_id":     "test_client",
			"code_verifier": "test_verifier",
			"redirect_uri":  "http://127.0.0.1:8888/callback",
		}
		for k, v := range want {
			if got := r.FormValue(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
	}, tokenResponse{AccessToken: "access_123", TokenType: "Bearer", ExpiresIn: 3600, RefreshToken: "refresh_456"}, http.StatusOK)

	token, err := ep.ExchangeCode(context.Background(), "test_client", "test_code", "http://127.0.0.1:8888/callback", "test_verifier")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if token.AccessToken != "access_123" || token.RefreshToken != "refresh_456" {
		t.Errorf("token = %+v", token)
	}
	if token.IsExpired() {
		t.Error("fresh token reports expired")
	}
}

func TestEndpoint_ExchangeCodeError(t *testing.T) {
	ep := tokenServer(t, nil, tokenResponse{Error: "invalid_grant", ErrorDesc: "Authorization code expired"}, http.StatusBadRequest)

	_, err := ep.ExchangeCode(context.Background(), "c", "code", "http://127.0.0.1:8888/callback", "v")
	if err == nil || !strings.Contains(err.Error(), "invalid_grant") {
		t.Errorf("ExchangeCode() error = %v, want invalid_grant", err)
	}
}

func TestEndpoint_RefreshKeepsRefreshToken(t *testing.T) {
	ep := tokenServer(t, func(r *http.Request) {
		if r.FormValue("grant_type") != "refresh_token" || r.FormValue("refresh_token") != "old_refresh" {
			t.Errorf("form = %v", r.Form)
		}
	}, tokenResponse{AccessToken: "new_access", ExpiresIn: 3600}, http.StatusOK)

	token, err := ep.Refresh(context.Background(), "client", "old_refresh")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if token.AccessToken != "new_access" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
	if token.RefreshToken != "old_refresh" {
		t.Errorf("RefreshToken = %q, want previous token kept", token.RefreshToken)
	}
}

func TestEndpoint_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ep := &Endpoint{URL: "http://127.0.0.1:1/token"}
	if _, err := ep.ExchangeCode(ctx, "client", "code", "http://localhost/callback", "verifier"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
