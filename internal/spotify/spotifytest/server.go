// Package spotifytest provides an in-memory Spotify Web API for tests.
package spotifytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/tessro/nocturne/internal/spotify/auth"
	"github.com/tessro/nocturne/internal/spotify/client"
)

// Server is a fake Spotify Web API. Exported fields may be set before the
// first request; use Lock/Unlock when changing them afterwards.
type Server struct {
	sync.Mutex

	User      client.User
	Playback  *client.PlaybackState
	Devices   []client.Device
	Saved     []client.SavedTrack
	Recent    []client.PlayHistory
	Artists   []client.Artist
	Playlists map[string]client.Playlist
	Tracks    map[string][]client.PlaylistItem

	calls   []string
	created int
	srv     *httptest.Server
}

// New starts a fake API and stops it when the test ends.
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		User:      client.User{ID: "kiosk-user", DisplayName: "Kiosk"},
		Playlists: map[string]client.Playlist{},
		Tracks:    map[string][]client.PlaylistItem{},
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the base URL of the API.
func (s *Server) URL() string {
	return s.srv.URL
}

// Client returns an authenticated client for the fake API.
func (s *Server) Client(t *testing.T) *client.Client {
	t.Helper()
	c := client.New("test-client", auth.NewFileStorage(t.TempDir(), ""), client.Options{
		BaseURL:    s.srv.URL,
		HTTPClient: s.srv.Client(),
	})
	err := c.SetToken(&auth.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// Calls returns "METHOD /path" for every request received.
func (s *Server) Calls() []string {
	s.Lock()
	defer s.Unlock()
	return append([]string(nil), s.calls...)
}

// AddPlaylist registers a playlist with n tracks.
func (s *Server) AddPlaylist(id, name, owner string, n int) {
	s.Lock()
	defer s.Unlock()
	p := client.Playlist{
		ID:     id,
		Name:   name,
		URI:    "spotify:playlist:" + id,
		Owner:  client.User{ID: owner},
		Images: []client.Image{{URL: "https://img.example/" + id}},
	}
	p.Tracks.Total = n
	s.Playlists[id] = p
	items := make([]client.PlaylistItem, n)
	for i := range items {
		tid := fmt.Sprintf("%s-%d", id, i)
		items[i] = client.PlaylistItem{Track: &client.Track{ID: tid, Name: "Track " + tid, URI: "spotify:track:" + tid}}
	}
	s.Tracks[id] = items
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record)

	r.HandleFunc("/me", s.json(func(*http.Request) any { return s.User })).Methods(http.MethodGet)
	r.HandleFunc("/me/player", s.getPlayback).Methods(http.MethodGet)
	r.HandleFunc("/me/player", s.transfer).Methods(http.MethodPut)
	r.HandleFunc("/me/player/devices", s.json(func(*http.Request) any {
		return client.DevicesResponse{Devices: s.Devices}
	})).Methods(http.MethodGet)
	r.HandleFunc("/me/player/play", s.setPlaying(true)).Methods(http.MethodPut)
	r.HandleFunc("/me/player/pause", s.setPlaying(false)).Methods(http.MethodPut)
	r.HandleFunc("/me/player/next", noContent).Methods(http.MethodPost)
	r.HandleFunc("/me/player/previous", noContent).Methods(http.MethodPost)
	r.HandleFunc("/me/player/shuffle", s.shuffle).Methods(http.MethodPut)
	r.HandleFunc("/me/player/repeat", s.repeat).Methods(http.MethodPut)
	r.HandleFunc("/me/player/recently-played", s.json(func(*http.Request) any {
		return client.RecentlyPlayedResponse{Items: s.Recent}
	})).Methods(http.MethodGet)
	r.HandleFunc("/me/tracks", s.json(func(*http.Request) any {
		return client.Page[client.SavedTrack]{Items: s.Saved, Total: len(s.Saved)}
	})).Methods(http.MethodGet)
	r.HandleFunc("/me/playlists", s.json(func(*http.Request) any {
		var items []client.Playlist
		for _, p := range s.Playlists {
			items = append(items, p)
		}
		return client.Page[client.Playlist]{Items: items, Total: len(items)}
	})).Methods(http.MethodGet)
	r.HandleFunc("/me/following", s.json(func(*http.Request) any {
		var resp client.FollowedArtistsResponse
		resp.Artists.Items = s.Artists
		resp.Artists.Total = len(s.Artists)
		return resp
	})).Methods(http.MethodGet)
	r.HandleFunc("/playlists/{id}", s.getPlaylist).Methods(http.MethodGet)
	r.HandleFunc("/playlists/{id}/tracks", s.getPlaylistTracks).Methods(http.MethodGet)
	r.HandleFunc("/playlists/{id}/tracks", s.addTracks).Methods(http.MethodPost)
	r.HandleFunc("/playlists/{id}/followers", s.unfollow).Methods(http.MethodDelete)
	r.HandleFunc("/users/{user}/playlists", s.createPlaylist).Methods(http.MethodPost)
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) json(body func(*http.Request) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		v := body(r)
		s.Unlock()
		writeJSON(w, http.StatusOK, v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": msg}})
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPlayback(w http.ResponseWriter, _ *http.Request) {
	s.Lock()
	defer s.Unlock()
	if s.Playback == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, s.Playback)
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceIDs []string `json:"device_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.DeviceIDs) != 1 {
		writeError(w, http.StatusBadRequest, "bad transfer")
		return
	}
	s.Lock()
	defer s.Unlock()
	for i := range s.Devices {
		s.Devices[i].IsActive = s.Devices[i].ID == body.DeviceIDs[0]
		if s.Devices[i].IsActive {
			if s.Playback == nil {
				s.Playback = &client.PlaybackState{RepeatState: "off"}
			}
			s.Playback.Device = s.Devices[i]
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setPlaying(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.Lock()
		defer s.Unlock()
		if s.Playback == nil {
			writeError(w, http.StatusNotFound, "Player command failed: No active device found")
			return
		}
		s.Playback.IsPlaying = on
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) shuffle(w http.ResponseWriter, r *http.Request) {
	on, err := strconv.ParseBool(r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad state")
		return
	}
	s.Lock()
	defer s.Unlock()
	if s.Playback != nil {
		s.Playback.ShuffleState = on
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) repeat(w http.ResponseWriter, r *http.Request) {
	s.Lock()
	defer s.Unlock()
	if s.Playback != nil {
		s.Playback.RepeatState = r.URL.Query().Get("state")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	s.Lock()
	p, ok := s.Playlists[mux.Vars(r)["id"]]
	s.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) getPlaylistTracks(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 100
	}

	s.Lock()
	all, ok := s.Tracks[id]
	s.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	end := min(offset+limit, len(all))
	start := min(offset, end)
	writeJSON(w, http.StatusOK, client.Page[client.PlaylistItem]{
		Items:  all[start:end],
		Total:  len(all),
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req client.CreatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}
	s.Lock()
	s.created++
	id := fmt.Sprintf("temp%d", s.created)
	p := client.Playlist{ID: id, Name: req.Name, Description: req.Description, Public: req.Public, Owner: s.User}
	s.Playlists[id] = p
	s.Tracks[id] = nil
	s.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) addTracks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}
	id := mux.Vars(r)["id"]
	s.Lock()
	for _, uri := range body.URIs {
		s.Tracks[id] = append(s.Tracks[id], client.PlaylistItem{Track: &client.Track{URI: uri}})
	}
	s.Unlock()
	writeJSON(w, http.StatusCreated, client.SnapshotResponse{SnapshotID: "snap"})
}

func (s *Server) unfollow(w http.ResponseWriter, r *http.Request) {
	s.Lock()
	delete(s.Playlists, mux.Vars(r)["id"])
	s.Unlock()
	w.WriteHeader(http.StatusOK)
}
