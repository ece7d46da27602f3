// Package server exposes a kiosk session to the browser front-end over a
// JSON HTTP API and a websocket that carries display effects.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/kiosk"
	"github.com/tessro/nocturne/internal/library"
)

// Server serves one kiosk session.
type Server struct {
	session  *kiosk.Session
	hub      *Hub
	router   *mux.Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
	detach   func()

	mu     sync.Mutex
	pagers map[string]*library.TrackPager
	mixes  map[string]*library.Mix
}

// New creates a server for session and attaches its websocket hub as a
// display.
func New(session *kiosk.Session, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("server")
	s := &Server{
		session: session,
		hub:     NewHub(logger),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The kiosk front-end is served from its own origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pagers: map[string]*library.TrackPager{},
		mixes:  map[string]*library.Mix{},
	}
	s.detach = session.Attach(s.hub)
	s.routes()
	return s
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/ws", s.handleWebsocket)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)

	api.HandleFunc("/keys/{key}/down", s.handleKeyDown).Methods(http.MethodPost)
	api.HandleFunc("/keys/{key}/up", s.handleKeyUp).Methods(http.MethodPost)

	api.HandleFunc("/buttons", s.handleListButtons).Methods(http.MethodGet)
	api.HandleFunc("/buttons/{button}", s.handleMapButton).Methods(http.MethodPut)
	api.HandleFunc("/buttons/{button}/activate", s.handleActivate).Methods(http.MethodPost)

	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods(http.MethodPut)

	api.HandleFunc("/viewport", s.handleViewport).Methods(http.MethodPost)
	api.HandleFunc("/navigate", s.handleNavigate).Methods(http.MethodPost)
	api.HandleFunc("/escape", s.handleEscape).Methods(http.MethodPost)
	api.HandleFunc("/drawer", s.handleDrawer).Methods(http.MethodPost)
	api.HandleFunc("/section/{section}", s.handleSection).Methods(http.MethodPost)

	api.HandleFunc("/library", s.handleLibrary).Methods(http.MethodGet)
	api.HandleFunc("/library/{section}", s.handleLibrarySection).Methods(http.MethodGet)

	api.HandleFunc("/playlists/{id}", s.handleOpenPlaylist).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{id}/tracks", s.handleMoreTracks).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{id}/play", s.handlePlayPlaylist).Methods(http.MethodPost)

	api.HandleFunc("/mixes/{id}", s.handleOpenMix).Methods(http.MethodGet)
	api.HandleFunc("/mixes/{id}/play", s.handlePlayMix).Methods(http.MethodPost)

	api.HandleFunc("/lyrics", s.handleLyrics).Methods(http.MethodGet)
	api.HandleFunc("/lyrics/toggle", s.handleToggleLyrics).Methods(http.MethodPost)

	api.HandleFunc("/player/{action}", s.handleTransport).Methods(http.MethodPost)

	s.router = r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close disconnects every websocket client and detaches from the session.
func (s *Server) Close() {
	s.detach()
	s.hub.Close()
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := s.hub.register(conn)
	c.reply(MsgHello, s.snapshot(c.id))
	go c.writePump()
	c.readPump(context.WithoutCancel(r.Context()), s.handleMessage)
}

// handleMessage applies a message sent by the front-end.
func (s *Server) handleMessage(ctx context.Context, c *wsClient, msg *Message) {
	var err error
	switch msg.Type {
	case MsgKeyDown, MsgKeyUp:
		var k KeyData
		if err = json.Unmarshal(msg.Data, &k); err != nil {
			break
		}
		if msg.Type == MsgKeyDown {
			err = s.session.KeyDown(k.Key, k.Repeat)
		} else {
			err = s.session.KeyUp(k.Key)
		}
	case MsgEscape:
		s.session.Escape()
	case MsgPath:
		var p struct {
			Path string `json:"path"`
		}
		if err = json.Unmarshal(msg.Data, &p); err == nil {
			s.session.SetPath(p.Path)
		}
	case MsgViewport:
		var v kiosk.Viewport
		if err = json.Unmarshal(msg.Data, &v); err == nil {
			err = s.session.SetViewport(v)
		}
	default:
		s.logger.Debug("unknown message", zap.String("client", c.id), zap.String("type", string(msg.Type)))
		return
	}
	if err != nil {
		status, body := errorBody(err)
		s.logger.Debug("message rejected", zap.String("type", string(msg.Type)), zap.Int("status", status), zap.Error(err))
		c.reply(MsgError, ErrorData{Code: body.Code, Message: body.Error})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
