package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/FatPandaC8/Vexpo/internal/access"
	"github.com/FatPandaC8/Vexpo/internal/models"
	"github.com/FatPandaC8/Vexpo/internal/store"
	"github.com/FatPandaC8/Vexpo/pkg/response"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	At    int64           `json:"at,omitempty"`
}

// Client is a single read-only WebSocket viewer of an expo floor.
// Privileged clients (the expo's organizer and admins) also receive events
// about pending and rejected booths.
type Client struct {
	ID         string
	ExpoID     uuid.UUID
	UserID     uuid.UUID
	Privileged bool
	hub        *Hub
	conn       *websocket.Conn
	send       chan WSMessage
	logger     *zap.Logger
}

// TokenVerifier authenticates the token passed in the query string.
type TokenVerifier interface {
	Authenticate(ctx context.Context, raw string) (*access.Principal, error)
}

// ExpoReader loads the expo a client wants to watch.
type ExpoReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Expo, error)
}

// NewUpgrader returns an upgrader accepting the given origins; "*" or an
// empty list accepts any origin.
func NewUpgrader(origins []string) *websocket.Upgrader {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowAll || origin == "" || allowed[origin]
		},
	}
}

// ServeWs handles GET /ws?expo_id=&token=. The token is optional; anonymous
// viewers receive public floor events only.
func ServeWs(hub *Hub, upgrader *websocket.Upgrader, verifier TokenVerifier, expos ExpoReader, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		expoID, err := uuid.Parse(c.Query("expo_id"))
		if err != nil {
			response.BadRequest(c, "valid expo_id required")
			return
		}
		var p *access.Principal
		if token := c.Query("token"); token != "" {
			p, err = verifier.Authenticate(c.Request.Context(), token)
			if err != nil {
				response.Unauthorized(c, "invalid token")
				return
			}
		}
		expo, err := expos.GetByID(c.Request.Context(), expoID)
		if errors.Is(err, store.ErrNotFound) {
			response.NotFound(c, "Expo not found")
			return
		}
		if err != nil {
			response.Error(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := &Client{
			ID:     uuid.New().String(),
			ExpoID: expoID,
			hub:    hub,
			conn:   conn,
			send:   make(chan WSMessage, 256),
			logger: logger,
		}
		if p != nil {
			client.UserID = p.UserID
			client.Privileged = p.IsAdmin() || expo.OwnedBy(p.UserID)
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump keeps the connection alive. Clients cannot publish; every frame
// other than ping is ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				c.logger.Debug("websocket read ended", zap.String("client_id", c.ID), zap.Error(err))
			}
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		if msg.Event == "ping" {
			select {
			case c.send <- WSMessage{Event: "pong", At: time.Now().Unix()}:
			default:
			}
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
