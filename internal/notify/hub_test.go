package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	Room    string         `json:"room"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

func newHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		room := r.URL.Query().Get("room")
		_ = hub.Serve(w, r, room, r.URL.Query().Get("user"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// dial connects to room and waits for the subscription acknowledgement.
func dial(t *testing.T, srv *httptest.Server, room, user string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?room=" + room + "&user=" + user
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	var hello received
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	require.Equal(t, EventSubscribed, hello.Event)
	require.Equal(t, room, hello.Room)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg received
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func TestHub_BroadcastToRoom(t *testing.T) {
	hub := NewHub(HubConfig{})
	srv := newHubServer(t, hub)

	alice := dial(t, srv, "game-1", "alice")
	bob := dial(t, srv, "game-1", "bob")
	carol := dial(t, srv, "game-2", "carol")
	assert.Equal(t, 2, hub.RoomSize("game-1"))

	hub.Broadcast("game-1", "roundClaimed", map[string]any{"claimedBy": "alice"})
	hub.Broadcast("game-2", "turnEnded", map[string]any{"currentTurn": "carol"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := read(t, conn)
		assert.Equal(t, "roundClaimed", msg.Event)
		assert.Equal(t, "game-1", msg.Room)
		assert.Equal(t, "alice", msg.Payload["claimedBy"])
	}

	msg := read(t, carol)
	assert.Equal(t, "turnEnded", msg.Event)
}

func TestHub_PreservesOrder(t *testing.T) {
	hub := NewHub(HubConfig{Buffer: 16})
	srv := newHubServer(t, hub)
	conn := dial(t, srv, "game-1", "alice")

	events := []string{"roundClaimed", "cardsDeclared", "roundApproved", "gameEnded"}
	for _, e := range events {
		hub.Broadcast("game-1", e, nil)
	}
	for _, e := range events {
		assert.Equal(t, e, read(t, conn).Event)
	}
}

func TestHub_LeaveOnDisconnect(t *testing.T) {
	hub := NewHub(HubConfig{})
	srv := newHubServer(t, hub)

	conn := dial(t, srv, "game-1", "alice")
	require.Equal(t, 1, hub.RoomSize("game-1"))

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return hub.RoomSize("game-1") == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(HubConfig{Buffer: 1})
	slow := &client{room: "game-1", user: "slow", send: make(chan []byte, 1)}
	hub.join(slow)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast("game-1", "turnEnded", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
	assert.Len(t, slow.send, 1)
}

type countingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (c *countingBroadcaster) Broadcast(room, event string, _ any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, room+"/"+event)
}

func TestFanout(t *testing.T) {
	a, b := &countingBroadcaster{}, &countingBroadcaster{}
	f := NewFanout(a, nil, b)
	assert.Equal(t, 2, f.Len())

	f.Broadcast("game-1", "gameStarted", nil)
	assert.Equal(t, []string{"game-1/gameStarted"}, a.events)
	assert.Equal(t, []string{"game-1/gameStarted"}, b.events)

	c := &countingBroadcaster{}
	f.Add(c)
	f.Add(nil)
	assert.Equal(t, 3, f.Len())
	f.Broadcast("game-1", "roundClaimed", nil)
	assert.Equal(t, []string{"game-1/roundClaimed"}, c.events)
	assert.Len(t, a.events, 2)

	Nop{}.Broadcast("game-1", "gameStarted", nil)
}
