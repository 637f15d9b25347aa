package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"
)

// EventSubscribed is sent to a client once it has joined its room.
const EventSubscribed = "subscribed"

// Message is the envelope every WebSocket client receives.
type Message struct {
	Room    string    `json:"room"`
	Event   string    `json:"event"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sentAt"`
}

// HubConfig tunes a Hub.
type HubConfig struct {
	// Buffer is the number of pending messages per client. A client whose
	// buffer is full misses messages until it catches up.
	Buffer         int
	WriteTimeout   time.Duration
	OriginPatterns []string
}

type client struct {
	room string
	user string
	send chan []byte
}

// Hub fans events out to WebSocket clients grouped by room.
type Hub struct {
	cfg HubConfig

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

// NewHub creates an empty Hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 32
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Hub{cfg: cfg, rooms: make(map[string]map[*client]struct{})}
}

// Broadcast implements Broadcaster.
func (h *Hub) Broadcast(room, event string, payload any) {
	data, err := json.Marshal(Message{Room: room, Event: event, Payload: payload, SentAt: time.Now()})
	if err != nil {
		log.Error().Err(err).Str("room", room).Str("event", event).Msg("Failed to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			log.Warn().
				Str("room", room).
				Str("user", c.user).
				Str("event", event).
				Msg("Client buffer full, dropping event")
		}
	}
}

// Serve upgrades the request to a WebSocket and streams the room's events
// until the client disconnects or the request context ends. Messages sent
// by the client are discarded.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, room, user string) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.cfg.OriginPatterns})
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	c := &client{room: room, user: user, send: make(chan []byte, h.cfg.Buffer)}
	h.join(c)
	defer h.leave(c)

	ctx := conn.CloseRead(r.Context())

	hello := Message{Room: room, Event: EventSubscribed, Payload: map[string]string{"user": user}, SentAt: time.Now()}
	if err := h.write(ctx, func(ctx context.Context) error { return wsjson.Write(ctx, conn, hello) }); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case data := <-c.send:
			err := h.write(ctx, func(ctx context.Context) error {
				return conn.Write(ctx, websocket.MessageText, data)
			})
			if err != nil {
				return err
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
	defer cancel()
	return fn(ctx)
}

func (h *Hub) join(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[c.room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[c.room] = members
	}
	members[c] = struct{}{}
	log.Debug().Str("room", c.room).Str("user", c.user).Int("members", len(members)).Msg("Client joined room")
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[c.room]
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, c.room)
	}
	log.Debug().Str("room", c.room).Str("user", c.user).Msg("Client left room")
}

// RoomSize returns the number of clients subscribed to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
