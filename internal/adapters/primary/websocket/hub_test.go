package websocket

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHub_BroadcastRoutesByRoom(t *testing.T) {
	hub := NewHub(testLogger())
	subscriber := NewClient(hub, nil, "op-1", Timing{}, testLogger())
	bystander := NewClient(hub, nil, "op-2", Timing{}, testLogger())
	watcher := NewClient(hub, nil, "op-3", Timing{}, testLogger())

	for _, c := range []*Client{subscriber, bystander, watcher} {
		hub.registerClient(c)
	}
	hub.subscribeClientToTicket(subscriber, 7)
	hub.subscribeClientToTicket(bystander, 8)
	hub.setWatching(watcher, true)

	hub.broadcastEvent(domain.Event{Type: domain.EventTicketAssigned, TicketID: 7})

	require.Len(t, subscriber.send, 1)
	assert.Equal(t, domain.EventTicketAssigned, (<-subscriber.send).Type)
	assert.Len(t, bystander.send, 0)
	assert.Len(t, watcher.send, 1)
	assert.Equal(t, 3, hub.ClientCount())
	assert.Equal(t, 1, hub.ClientsInRoom(7))
}

func TestHub_UnregisterCleansRooms(t *testing.T) {
	hub := NewHub(testLogger())
	client := NewClient(hub, nil, "op-1", Timing{}, testLogger())
	hub.registerClient(client)
	hub.subscribeClientToTicket(client, 3)
	hub.setWatching(client, true)

	hub.unregisterClient(client)
	hub.unregisterClient(client)

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.ClientsInRoom(3))
	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_FullBufferDropsClient(t *testing.T) {
	hub := NewHub(testLogger())
	client := NewClient(hub, nil, "op-1", Timing{}, testLogger())
	hub.registerClient(client)
	hub.subscribeClientToTicket(client, 1)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.broadcastEvent(domain.Event{Type: domain.EventStatusUpdated, TicketID: 1})
	}

	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(testLogger())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, conn, "op-1", Timing{}, testLogger()).Serve()
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    MessageSubscribe,
		"payload": map[string]int64{"ticket_id": 42},
	}))
	require.Eventually(t, func() bool { return hub.ClientsInRoom(42) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(domain.Event{Type: domain.EventTicketAssigned, TicketID: 42, Payload: map[string]int{"rank": 1}}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got domain.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, domain.EventTicketAssigned, got.Type)
	assert.Equal(t, int64(42), got.TicketID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": MessagePing}))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, eventPong, got.Type)
}
