package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

// Hub maintains the set of active Clients and fans routing events out to
// the ticket rooms they subscribe to.
type Hub struct {
	// clients maps operator ids to their active connections.
	// A single operator can have multiple connections (multiple tabs/devices)
	clients map[string]map[*Client]bool

	// rooms maps ticket IDs to subscribed clients
	rooms map[int64]map[*Client]bool

	// watchers receive every event regardless of ticket (assignment dashboards)
	watchers map[*Client]bool

	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// done is closed when Run returns
	done chan struct{}

	// mu protects the clients, rooms and watchers maps
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		rooms:      make(map[int64]map[*Client]bool),
		watchers:   make(map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for delivery. A full queue drops the event; the
// REST API stays authoritative.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"ticket_id", event.TicketID,
		)
	}
	return nil
}

// Run is the hub's event loop. It returns when ctx is cancelled, after
// closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// register hands a client to the event loop. It reports false once the hub
// has stopped.
func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.OperatorID] == nil {
		h.clients[client.OperatorID] = make(map[*Client]bool)
	}
	h.clients[client.OperatorID][client] = true

	h.logger.Info("client registered",
		"user_id", client.OperatorID,
		"total_connections", len(h.clients[client.OperatorID]),
	)
}

// unregisterClient removes a client from the hub and all rooms
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.OperatorID][client]; !ok {
		return
	}
	h.removeLocked(client)

	h.logger.Info("client unregistered", "user_id", client.OperatorID)
}

func (h *Hub) removeLocked(client *Client) {
	if operatorClients, ok := h.clients[client.OperatorID]; ok {
		delete(operatorClients, client)
		if len(operatorClients) == 0 {
			delete(h.clients, client.OperatorID)
		}
	}

	for _, ticketID := range client.Subscriptions() {
		if room, ok := h.rooms[ticketID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, ticketID)
			}
		}
	}
	delete(h.watchers, client)

	client.CloseSend()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, operatorClients := range h.clients {
		for client := range operatorClients {
			h.removeLocked(client)
		}
	}
}

// broadcastEvent sends an event to the ticket's room and to every watcher
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	targets := make(map[*Client]bool, len(h.rooms[event.TicketID])+len(h.watchers))
	for client := range h.rooms[event.TicketID] {
		targets[client] = true
	}
	for client := range h.watchers {
		targets[client] = true
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
		"client_count", len(targets),
	)

	for client := range targets {
		select {
		case client.send <- event:
		default:
			h.logger.Warn("client send buffer full, unregistering", "user_id", client.OperatorID)
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) subscribeClientToTicket(client *Client, ticketID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[ticketID] == nil {
		h.rooms[ticketID] = make(map[*Client]bool)
	}
	h.rooms[ticketID][client] = true
	client.addSubscription(ticketID)

	h.logger.Debug("client subscribed to ticket",
		"user_id", client.OperatorID,
		"ticket_id", ticketID,
	)
}

func (h *Hub) unsubscribeClientFromTicket(client *Client, ticketID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[ticketID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, ticketID)
		}
	}
	client.removeSubscription(ticketID)
}

func (h *Hub) setWatching(client *Client, watching bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if watching {
		h.watchers[client] = true
	} else {
		delete(h.watchers, client)
	}
}

// ClientCount returns the total number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, operatorClients := range h.clients {
		count += len(operatorClients)
	}
	return count
}

// ClientsInRoom returns the number of clients subscribed to a ticket
func (h *Hub) ClientsInRoom(ticketID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ticketID])
}
