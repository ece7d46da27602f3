package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tessro/nocturne/internal/core"
	nerrors "github.com/tessro/nocturne/internal/errors"
	"github.com/tessro/nocturne/internal/kiosk"
	"github.com/tessro/nocturne/internal/library"
	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/spotify/client"
)

type errorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errorBody maps err to a status and response body.
func errorBody(err error) (int, errorResponse) {
	body := errorResponse{
		Error:      nerrors.Message(err),
		Code:       string(nerrors.CodeOf(err)),
		Suggestion: nerrors.GetSuggestion(err),
	}
	switch {
	case errors.Is(err, nerrors.ErrInvalidResolution):
		return http.StatusUnprocessableEntity, errorResponse{Error: "Invalid Resolution", Code: "INVALID_RESOLUTION"}
	case errors.Is(err, nerrors.ErrInvalidButton), errors.Is(err, nerrors.ErrUnplayableRoute):
		return http.StatusBadRequest, body
	case errors.Is(err, nerrors.ErrMixNotFound), errors.Is(err, nerrors.ErrPlaylistNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, nerrors.ErrNotAuthenticated), errors.Is(err, nerrors.ErrNoRefreshToken):
		return http.StatusUnauthorized, body
	case body.Code != "":
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// decode reads an optional JSON body into v.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

type settingsView struct {
	Shuffle           bool                 `json:"shuffle"`
	Repeat            core.RepeatMode      `json:"repeat"`
	LyricsMenuEnabled bool                 `json:"lyrics_menu_enabled"`
	Buttons           []core.ButtonMapping `json:"buttons"`
}

type stateView struct {
	ClientID string              `json:"client_id,omitempty"`
	Path     string              `json:"path"`
	Section  library.Section     `json:"section"`
	Drawer   bool                `json:"drawer"`
	Playback *core.PlaybackState `json:"playback,omitempty"`
	Settings settingsView        `json:"settings"`
}

func (s *Server) settings() settingsView {
	st := s.session.Settings()
	buttons := st.Mappings()
	if buttons == nil {
		buttons = []core.ButtonMapping{}
	}
	return settingsView{
		Shuffle:           st.Shuffle(),
		Repeat:            st.Repeat(),
		LyricsMenuEnabled: st.LyricsMenuEnabled(),
		Buttons:           buttons,
	}
}

func (s *Server) snapshot(clientID string) stateView {
	return stateView{
		ClientID: clientID,
		Path:     s.session.Path(),
		Section:  s.session.Section(),
		Drawer:   s.session.DrawerOpen(),
		Playback: s.session.State(),
		Settings: s.settings(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.Count()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot(""))
}

func (s *Server) handleKeyDown(w http.ResponseWriter, r *http.Request) {
	repeat, _ := strconv.ParseBool(r.URL.Query().Get("repeat"))
	if err := s.session.KeyDown(mux.Vars(r)["key"], repeat); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKeyUp(w http.ResponseWriter, r *http.Request) {
	if err := s.session.KeyUp(mux.Vars(r)["key"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListButtons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings().Buttons)
}

func buttonVar(r *http.Request) (core.ButtonID, error) {
	b, ok := core.ParseButton(mux.Vars(r)["button"])
	if !ok {
		return 0, fmt.Errorf("%w: %q", nerrors.ErrInvalidButton, mux.Vars(r)["button"])
	}
	return b, nil
}

// handleMapButton stores a mapping directly, as a completed hold would.
func (s *Server) handleMapButton(w http.ResponseWriter, r *http.Request) {
	b, err := buttonVar(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Route    string `json:"route"`
		ImageURL string `json:"image_url"`
	}
	if err := decode(r, &req); err != nil || req.Route == "" {
		badRequest(w, "route is required")
		return
	}
	if _, err := core.TargetForRoute(req.Route); err != nil {
		writeError(w, fmt.Errorf("%w: %v", nerrors.ErrUnplayableRoute, err))
		return
	}

	m := core.ButtonMapping{Button: b, Route: req.Route, ImageURL: req.ImageURL}
	st := s.session.Settings()
	if err := st.SetMapping(m); err != nil {
		writeError(w, err)
		return
	}
	if err := st.Store().Flush(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	m, _ = st.Mapping(b)
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	b, err := buttonVar(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.session.Recorder().Activate(b)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shuffle           *bool   `json:"shuffle"`
		Repeat            *string `json:"repeat"`
		LyricsMenuEnabled *bool   `json:"lyrics_menu_enabled"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid body")
		return
	}

	st := s.session.Settings()
	if req.Repeat != nil {
		mode := core.ParseRepeatMode(*req.Repeat)
		if string(mode) != *req.Repeat {
			badRequest(w, fmt.Sprintf("invalid repeat mode %q", *req.Repeat))
			return
		}
		if err := st.SetRepeat(mode); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Shuffle != nil {
		if err := st.SetShuffle(*req.Shuffle); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.LyricsMenuEnabled != nil {
		if err := st.SetLyricsMenuEnabled(*req.LyricsMenuEnabled); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := st.Store().Flush(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.settings())
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var v kiosk.Viewport
	if err := decode(r, &v); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if err := s.session.SetViewport(v); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleNavigate records a route change made by the front-end.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decode(r, &req); err != nil || req.Path == "" {
		badRequest(w, "path is required")
		return
	}
	s.session.SetPath(req.Path)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEscape(w http.ResponseWriter, r *http.Request) {
	s.session.Escape()
	writeJSON(w, http.StatusOK, s.snapshot(""))
}

func (s *Server) handleDrawer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Open bool `json:"open"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	s.session.SetDrawer(req.Open)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	sec, ok := library.ParseSection(mux.Vars(r)["section"])
	if !ok {
		badRequest(w, "unknown section")
		return
	}
	s.session.SetSection(sec)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	res := s.session.Library().Load(r.Context())
	body := map[string]any{"home": res.Data}
	if res.HasErrors() {
		body["error"] = res.ErrorSummary()
		body["code"] = string(nerrors.CodeFetchLibrary)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleLibrarySection(w http.ResponseWriter, r *http.Request) {
	sec, ok := library.ParseSection(mux.Vars(r)["section"])
	if !ok {
		badRequest(w, "unknown section")
		return
	}
	home := s.session.Library().Home()
	items := library.Filter(home.Section(sec), r.URL.Query().Get("q"))
	if items == nil {
		items = []library.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

type tracksView struct {
	Tracks  []*core.Track `json:"tracks"`
	Total   int           `json:"total"`
	HasMore bool          `json:"has_more"`
}

func pagerView(p *library.TrackPager) tracksView {
	tracks := p.Items()
	if tracks == nil {
		tracks = []*core.Track{}
	}
	return tracksView{Tracks: tracks, Total: p.Total(), HasMore: p.HasMore()}
}

func (s *Server) handleOpenPlaylist(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, pager, err := s.session.OpenPlaylist(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	s.pagers[id] = pager
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Playlist *client.Playlist `json:"playlist"`
		tracksView
	}{p, pagerView(pager)})
}

// handleMoreTracks loads the next page of an open playlist.
func (s *Server) handleMoreTracks(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	pager := s.pagers[id]
	s.mu.Unlock()
	if pager == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "playlist is not open"})
		return
	}
	if _, err := pager.LoadMore(r.Context()); err != nil {
		writeError(w, nerrors.WithCode(nerrors.CodeFetchPlaylist, err))
		return
	}
	writeJSON(w, http.StatusOK, pagerView(pager))
}

type playRequest struct {
	Index *int `json:"index"`
}

func (s *Server) handlePlayPlaylist(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if err := s.session.PlayPlaylist(r.Context(), mux.Vars(r)["id"], req.Index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": core.NowPlayingRoute})
}

func (s *Server) handleOpenMix(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	mix, err := s.session.OpenMix(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	s.mixes[id] = mix
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, mix)
}

func (s *Server) handlePlayMix(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid body")
		return
	}

	id := mux.Vars(r)["id"]
	s.mu.Lock()
	mix := s.mixes[id]
	s.mu.Unlock()
	if mix == nil {
		var err error
		if mix, err = s.session.OpenMix(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := s.session.PlayMix(r.Context(), mix, req.Index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": core.NowPlayingRoute})
}

func (s *Server) handleLyrics(w http.ResponseWriter, r *http.Request) {
	t := s.session.Lyrics()
	if t == nil {
		writeJSON(w, http.StatusOK, lyrics.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, t.Snapshot())
}

func (s *Server) handleToggleLyrics(w http.ResponseWriter, r *http.Request) {
	if !s.session.Settings().LyricsMenuEnabled() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "lyrics menu is disabled"})
		return
	}
	open := s.session.ToggleLyrics(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"open": open})
}

func (s *Server) handleTransport(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Transport(r.Context(), mux.Vars(r)["action"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
