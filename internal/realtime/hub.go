package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	// EventViewerCount reports how many clients watch an expo on this instance.
	EventViewerCount = "viewer_count"
)

// Publisher fans expo events out to other instances.
type Publisher interface {
	PublishExpoEvent(expoID uuid.UUID, event string, payload []byte, public bool) error
}

// Subscriber delivers expo events published by any instance, including this one.
type Subscriber interface {
	SubscribeExpo(expoID uuid.UUID, handler func(event string, payload []byte, public bool)) (cancel func(), err error)
}

// Hub maintains expo_id -> set of connections and broadcasts floor events.
// With Redis configured, events of a subscribed room go through the expo
// channel only and the subscription delivers them locally, so every instance
// sees each event once. Rooms without a live subscription get local delivery.
type Hub struct {
	rooms   map[uuid.UUID]map[string]*Client
	subs    map[uuid.UUID]func()
	joining map[uuid.UUID]bool
	mu      sync.RWMutex
	logger  *zap.Logger
	pub     Publisher
	sub     Subscriber
}

// NewHub creates a hub. pub and sub may both be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:   make(map[uuid.UUID]map[string]*Client),
		subs:    make(map[uuid.UUID]func()),
		joining: make(map[uuid.UUID]bool),
		logger:  logger,
		pub:     pub,
		sub:     sub,
	}
}

// Register adds a client to its expo room. The expo channel is subscribed
// while the room has no subscription yet, so a failed attempt is retried by
// the next client that joins.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room := h.rooms[c.ExpoID]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[c.ExpoID] = room
	}
	room[c.ID] = c
	count := len(room)
	subscribe := h.sub != nil && h.subs[c.ExpoID] == nil && !h.joining[c.ExpoID]
	if subscribe {
		h.joining[c.ExpoID] = true
	}
	h.mu.Unlock()

	if subscribe {
		h.subscribe(c.ExpoID)
	}

	h.Broadcast(c.ExpoID, EventViewerCount, map[string]int{"count": count}, true)
	h.logger.Debug("client joined expo", zap.String("client_id", c.ID), zap.String("expo_id", c.ExpoID.String()))
}

func (h *Hub) subscribe(expoID uuid.UUID) {
	cancel, err := h.sub.SubscribeExpo(expoID, func(event string, payload []byte, public bool) {
		h.Broadcast(expoID, event, json.RawMessage(payload), public)
	})

	h.mu.Lock()
	delete(h.joining, expoID)
	if err != nil {
		h.mu.Unlock()
		h.logger.Warn("expo subscribe failed", zap.String("expo_id", expoID.String()), zap.Error(err))
		return
	}
	if h.rooms[expoID] == nil {
		h.mu.Unlock()
		cancel()
		return
	}
	h.subs[expoID] = cancel
	h.mu.Unlock()
}

// subscribed reports whether events of expoID reach this instance through
// the expo channel.
func (h *Hub) subscribed(expoID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subs[expoID] != nil
}

// Unregister removes a client and drops the expo subscription when the room empties.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	count := -1
	if m, ok := h.rooms[c.ExpoID]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		count = len(m)
		if count == 0 {
			delete(h.rooms, c.ExpoID)
			if cancel, ok := h.subs[c.ExpoID]; ok {
				cancel()
				delete(h.subs, c.ExpoID)
			}
		}
	}
	h.mu.Unlock()

	if count > 0 {
		h.Broadcast(c.ExpoID, EventViewerCount, map[string]int{"count": count}, true)
	}
	h.logger.Debug("client left expo", zap.String("client_id", c.ID), zap.String("expo_id", c.ExpoID.String()))
}

// Broadcast sends an event to local clients of an expo. Events that are not
// public reach privileged clients only.
func (h *Hub) Broadcast(expoID uuid.UUID, event string, payload any, public bool) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode expo event failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data, At: time.Now().Unix()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[expoID] {
		if !public && !c.Privileged {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// PublishExpoEvent delivers a floor event to every instance's clients of the expo.
func (h *Hub) PublishExpoEvent(expoID uuid.UUID, event string, payload any, public bool) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode expo event failed", zap.String("event", event), zap.Error(err))
		return
	}
	if h.pub != nil {
		err := h.pub.PublishExpoEvent(expoID, event, data, public)
		if err == nil && h.subscribed(expoID) {
			return
		}
		if err != nil {
			h.logger.Warn("publish expo event failed, delivering locally",
				zap.String("expo_id", expoID.String()), zap.String("event", event), zap.Error(err))
		}
	}
	h.Broadcast(expoID, event, json.RawMessage(data), public)
}

// ViewerCount returns the number of local clients watching an expo.
func (h *Hub) ViewerCount(expoID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[expoID])
}

func encode(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}
