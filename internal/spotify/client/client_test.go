package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/spotify/auth"
)

func validToken() *auth.Token {
	return &auth.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("client-id", auth.NewFileStorage(t.TempDir(), ""), Options{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
	if err := c.SetToken(validToken()); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestBuildURL(t *testing.T) {
	if got := BuildURL("/me", nil); got != "/me" {
		t.Errorf("BuildURL() = %q", got)
	}
	if got := BuildURL("/search", map[string]string{"q": "test"}); got != "/search?q=test" {
		t.Errorf("BuildURL() = %q", got)
	}
	got := BuildURL("/me/tracks", map[string]string{"limit": "50", "offset": "25"})
	if got != "/me/tracks?limit=50&offset=25" {
		t.Errorf("BuildURL() = %q", got)
	}
}

func TestAPIError(t *testing.T) {
	err := parseAPIError(401, []byte(`{"error":{"status":401,"message":"Invalid access token"}}`))
	if got := err.Error(); got != "Spotify API error 401: Invalid access token" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, nerrors.ErrNotAuthenticated) {
		t.Error("401 should match ErrNotAuthenticated")
	}

	plain := parseAPIError(502, []byte("<html>bad gateway</html>"))
	if StatusOf(plain) != 502 || !strings.Contains(plain.Error(), "Bad Gateway") {
		t.Errorf("non-JSON error = %v", plain)
	}

	premium := parseAPIError(403, []byte(`{"error":{"status":403,"message":"Player command failed","reason":"PREMIUM_REQUIRED"}}`))
	if !errors.Is(premium, nerrors.ErrPremiumRequired) {
		t.Error("PREMIUM_REQUIRED reason should match ErrPremiumRequired")
	}
}

func TestRequestSendsBearerAndDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer access" {
			t.Errorf("Authorization = %q", got)
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"status":500,"message":"Server error"}}`)
	}))

	err := c.Get(context.Background(), "/me", &User{})
	if StatusOf(err) != 500 {
		t.Fatalf("Get() error = %v, want 500 API error", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want exactly 1", hits.Load())
	}
}

func TestGetPlaybackStateNoContent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	state, err := c.GetPlaybackState(context.Background())
	if err != nil {
		t.Fatalf("GetPlaybackState() error = %v", err)
	}
	if state != nil {
		t.Errorf("state = %+v, want nil", state)
	}
}

func TestGetPlaybackState(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/player" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"device":{"id":"d1","name":"Car","is_active":true},"shuffle_state":true,"repeat_state":"context","progress_ms":1200,"is_playing":true,"item":{"id":"t1","name":"Song","duration_ms":180000}}`)
	}))

	state, err := c.GetPlaybackState(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if state.Device.ID != "d1" || !state.ShuffleState || state.RepeatState != "context" || state.Item.ID != "t1" {
		t.Errorf("state = %+v", state)
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	c := New("id", auth.NewFileStorage(t.TempDir(), ""), Options{})
	if err := c.Refresh(context.Background()); !errors.Is(err, nerrors.ErrNoRefreshToken) {
		t.Errorf("Refresh() error = %v, want ErrNoRefreshToken", err)
	}
	if err := c.Get(context.Background(), "/me", nil); !errors.Is(err, nerrors.ErrNotAuthenticated) {
		t.Errorf("Get() without token error = %v, want ErrNotAuthenticated", err)
	}
}

func TestExpiredTokenRefreshesOnce(t *testing.T) {
	var refreshes atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		_, _ = io.WriteString(w, `{"access_token":"fresh","expires_in":3600}`)
	}))
	defer tokenSrv.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fresh" {
			t.Errorf("Authorization = %q, want refreshed token", got)
		}
		_, _ = io.WriteString(w, `{"id":"user1"}`)
	}))
	defer api.Close()

	storage := auth.NewFileStorage(t.TempDir(), "")
	c := New("id", storage, Options{
		BaseURL:  api.URL,
		Endpoint: &auth.Endpoint{URL: tokenSrv.URL, HTTPClient: tokenSrv.Client()},
	})
	_ = c.SetToken(&auth.Token{AccessToken: "stale", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute)})

	if c.IsAuthenticated() {
		t.Fatal("expired token reports authenticated")
	}
	user, err := c.GetCurrentUser(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != "user1" || refreshes.Load() != 1 {
		t.Errorf("user = %+v, refreshes = %d", user, refreshes.Load())
	}

	saved, _ := storage.Load()
	if saved.AccessToken != "fresh" || saved.RefreshToken != "r" {
		t.Errorf("persisted token = %+v", saved)
	}
}

func TestPlaySendsOffsetZero(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/me/player/play" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("device_id") != "d1" {
			t.Errorf("device_id = %q", r.URL.Query().Get("device_id"))
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		offset, ok := body["offset"].(map[string]any)
		if !ok || offset["position"] != float64(0) {
			t.Errorf("body = %v, want explicit offset position 0", body)
		}
		if body["context_uri"] != "spotify:playlist:p1" {
			t.Errorf("context_uri = %v", body["context_uri"])
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	err := c.Play(context.Background(), "d1", &PlayOptions{
		ContextURI: "spotify:playlist:p1",
		Offset:     &PlayOffset{Position: 0},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestTransferPlayback(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			DeviceIDs []string `json:"device_ids"`
			Play      bool     `json:"play"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.Method != http.MethodPut || r.URL.Path != "/me/player" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if len(body.DeviceIDs) != 1 || body.DeviceIDs[0] != "d9" || body.Play {
			t.Errorf("body = %+v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := c.TransferPlayback(context.Background(), "d9", false); err != nil {
		t.Fatal(err)
	}
}

func TestShuffleAndRepeatQuery(t *testing.T) {
	var seen []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Path+"?"+r.URL.RawQuery)
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx := context.Background()
	if err := c.SetShuffle(ctx, true, ""); err != nil {
		t.Fatal(err)
	}
	if err := c.SetRepeat(ctx, "context", "d1"); err != nil {
		t.Fatal(err)
	}
	want := []string{"/me/player/shuffle?state=true", "/me/player/repeat?device_id=d1&state=context"}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestPlaylistMutations(t *testing.T) {
	var calls []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/users/u1/playlists":
			var req CreatePlaylistRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Public || req.Name != "Temp" {
				t.Errorf("create body = %+v", req)
			}
			_, _ = io.WriteString(w, `{"id":"tmp1","name":"Temp"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/playlists/tmp1/tracks":
			var body struct{ URIs []string }
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body.URIs) != 2 {
				t.Errorf("uris = %v", body.URIs)
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"snapshot_id":"s"}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/playlists/tmp1/followers":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	ctx := context.Background()
	pl, err := c.CreatePlaylist(ctx, "u1", CreatePlaylistRequest{Name: "Temp"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddTracksToPlaylist(ctx, pl.ID, []string{"spotify:track:a", "spotify:track:b"}); err != nil {
		t.Fatal(err)
	}
	if err := c.UnfollowPlaylist(ctx, pl.ID); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 3 {
		t.Errorf("calls = %v", calls)
	}
}

func TestGetPlaylistTracksPaging(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("offset") != "25" || q.Get("limit") != "25" {
			t.Errorf("query = %v", q)
		}
		_, _ = io.WriteString(w, `{"items":[{"track":{"id":"t26"}},{"track":null}],"total":40,"offset":25,"limit":25}`)
	}))

	page, err := c.GetPlaylistTracks(context.Background(), "p1", 25, 25)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 40 || len(page.Items) != 2 || page.Items[1].Track != nil {
		t.Errorf("page = %+v", page)
	}
}

func TestFirstImageURL(t *testing.T) {
	if FirstImageURL(nil) != "" {
		t.Error("nil images should give empty url")
	}
	if FirstImageURL([]Image{{URL: "a"}, {URL: "b"}}) != "a" {
		t.Error("want first image")
	}
}
