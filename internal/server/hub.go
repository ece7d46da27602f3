package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tessro/nocturne/internal/core"
	"github.com/tessro/nocturne/internal/lyrics"
	"github.com/tessro/nocturne/internal/tail"
)

// MessageType names a websocket message.
type MessageType string

const (
	MsgToast       MessageType = "toast"
	MsgHideToast   MessageType = "hide_toast"
	MsgOverlay     MessageType = "overlay"
	MsgHideOverlay MessageType = "hide_overlay"
	MsgNavigate    MessageType = "navigate"
	MsgError       MessageType = "error"
	MsgPlayback    MessageType = "playback"
	MsgLyrics      MessageType = "lyrics"
	MsgHello       MessageType = "hello"

	// Sent by the front-end.
	MsgKeyDown  MessageType = "keydown"
	MsgKeyUp    MessageType = "keyup"
	MsgEscape   MessageType = "escape"
	MsgPath     MessageType = "path"
	MsgViewport MessageType = "viewport"
	MsgPing     MessageType = "ping"
	MsgPong     MessageType = "pong"
)

// Message is the websocket envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PlaybackData is the payload of a playback message.
type PlaybackData struct {
	Event string              `json:"event"`
	State *core.PlaybackState `json:"state,omitempty"`
}

// KeyData is the payload of keydown and keyup messages.
type KeyData struct {
	Key    string `json:"key"`
	Repeat bool   `json:"repeat,omitempty"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// wsClient is one connected front-end.
type wsClient struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans kiosk effects out to every connected front-end. It implements
// core.Display and kiosk.EventSink.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger, clients: map[string]*wsClient{}}
}

func (h *Hub) register(conn *websocket.Conn) *wsClient {
	c := &wsClient{id: uuid.NewString(), hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Info("client connected", zap.String("client", c.id))
	return c
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Info("client disconnected", zap.String("client", c.id))
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

func encode(t MessageType, data any) ([]byte, error) {
	msg := Message{Type: t, Timestamp: time.Now().UnixMilli()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}

// Broadcast sends a message to every client. Clients whose buffer is full
// are dropped.
func (h *Hub) Broadcast(t MessageType, data any) {
	payload, err := encode(t, data)
	if err != nil {
		h.logger.Error("encode message", zap.String("type", string(t)), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("client too slow, dropping", zap.String("client", id))
			delete(h.clients, id)
			close(c.send)
		}
	}
}

func (h *Hub) ShowToast(message string) {
	h.Broadcast(MsgToast, map[string]string{"message": message})
}

func (h *Hub) HideToast() {
	h.Broadcast(MsgHideToast, nil)
}

func (h *Hub) ShowOverlay(b core.ButtonID) {
	h.Broadcast(MsgOverlay, map[string]int{"button": int(b)})
}

func (h *Hub) HideOverlay() {
	h.Broadcast(MsgHideOverlay, nil)
}

func (h *Hub) Navigate(path string) {
	h.Broadcast(MsgNavigate, map[string]string{"path": path})
}

func (h *Hub) ShowError(code, message string) {
	h.Broadcast(MsgError, ErrorData{Code: code, Message: message})
}

// PlaybackEvent broadcasts a playback change.
func (h *Hub) PlaybackEvent(e tail.Event) {
	h.Broadcast(MsgPlayback, PlaybackData{Event: tail.EventTypeName(e.Type), State: e.Current})
}

// LyricsChanged broadcasts the lyrics panel state.
func (h *Hub) LyricsChanged(s lyrics.Snapshot) {
	h.Broadcast(MsgLyrics, s)
}

// readPump handles inbound messages until the connection fails.
func (c *wsClient) readPump(ctx context.Context, handle func(ctx context.Context, c *wsClient, msg *Message)) {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debug("invalid message", zap.String("client", c.id), zap.Error(err))
			continue
		}
		if msg.Type == MsgPing {
			c.reply(MsgPong, nil)
			continue
		}
		handle(ctx, c, &msg)
	}
}

// reply sends a message to this client only.
func (c *wsClient) reply(t MessageType, data any) {
	payload, err := encode(t, data)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// writePump delivers queued messages and keeps the connection alive.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
