package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/treppan-learn/backend/internal/sessions"
)

const commandTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// eventData is the payload of an inbound player event.
type eventData struct {
	CourseID string `json:"course_id"`
	LessonID string `json:"lesson_id"`
	Value    int    `json:"value"`
	Viewport string `json:"viewport"`
}

// SessionStore is the part of the session registry the WebSocket layer needs.
type SessionStore interface {
	Get(id uuid.UUID) (*sessions.Controller, error)
}

// Client represents a single WebSocket connection attached to a playback session.
type Client struct {
	ID        string
	SessionID uuid.UUID
	JoinedAt  time.Time
	hub       *Hub
	session   *sessions.Controller
	conn      *websocket.Conn
	send      chan WSMessage
	logger    *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, store SessionStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := uuid.Parse(c.Query("session_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "valid session_id required"})
			return
		}
		ctrl, err := store.Get(sessionID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			JoinedAt:  time.Now(),
			hub:       hub,
			session:   ctrl,
			conn:      conn,
			send:      make(chan WSMessage, 256),
			logger:    logger,
		}
		hub.Register(client)
		go client.writePump()
		client.sendSnapshot()
		client.readPump()
	}
}

// commandFor maps an inbound event to a session command.
func commandFor(msg WSMessage) (sessions.Command, error) {
	var d eventData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return sessions.Command{}, err
		}
	}
	switch sessions.Action(msg.Event) {
	case sessions.ActionSelectLesson, sessions.ActionTogglePlay, sessions.ActionAdvanceProgress,
		sessions.ActionNextLesson, sessions.ActionTogglePanel, sessions.ActionCompleteLesson,
		sessions.ActionSetViewport, sessions.ActionInitialize:
	default:
		return sessions.Command{}, sessions.ErrUnknownAction
	}
	return sessions.Command{
		Action:   sessions.Action(msg.Event),
		CourseID: d.CourseID,
		LessonID: d.LessonID,
		Value:    d.Value,
		Viewport: d.Viewport,
	}, nil
}

func (c *Client) sendSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	snap, err := c.session.Snapshot(ctx)
	if err != nil {
		c.sendError(err)
		return
	}
	c.hub.SendToClient(c.SessionID, c.ID, EventSessionState, snap)
}

func (c *Client) sendError(err error) {
	c.hub.SendToClient(c.SessionID, c.ID, EventError, map[string]string{"error": err.Error()})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		if msg.Event == "sync" {
			c.sendSnapshot()
			continue
		}
		cmd, err := commandFor(msg)
		if err != nil {
			c.sendError(err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		snap, err := c.session.Apply(ctx, cmd)
		cancel()
		switch {
		case errors.Is(err, sessions.ErrSessionClosed):
			c.sendError(err)
			return
		case err != nil:
			c.sendError(err)
		case !snap.Applied:
			// no-op transitions are not broadcast; the sender still gets the current state
			c.hub.SendToClient(c.SessionID, c.ID, EventSessionState, snap)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
