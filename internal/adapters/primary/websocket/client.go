package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	sendBufferSize = 256
)

// Client message types.
const (
	MessageSubscribe   = "SUBSCRIBE_TO_TICKET"
	MessageUnsubscribe = "UNSUBSCRIBE_FROM_TICKET"
	MessageWatch       = "WATCH_ASSIGNMENTS"
	MessageUnwatch     = "UNWATCH_ASSIGNMENTS"
	MessagePing        = "PING"
	eventPong          = domain.EventType("PONG")
)

// Timing controls the keep-alive cadence. PingInterval must be less than PongWait.
type Timing struct {
	PingInterval time.Duration
	PongWait     time.Duration
}

// DefaultTiming is used when a zero Timing is supplied.
func DefaultTiming() Timing {
	return Timing{PingInterval: 54 * time.Second, PongWait: 60 * time.Second}
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan domain.Event
	pong chan struct{}

	// OperatorID is the JWT subject of the connected operator.
	OperatorID string

	subscriptions map[int64]bool
	timing        Timing

	closeOnce sync.Once
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, operatorID string, timing Timing, logger *slog.Logger) *Client {
	if timing.PongWait <= 0 || timing.PingInterval <= 0 || timing.PingInterval >= timing.PongWait {
		timing = DefaultTiming()
	}
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan domain.Event, sendBufferSize),
		pong:          make(chan struct{}, 1),
		OperatorID:    operatorID,
		subscriptions: make(map[int64]bool),
		timing:        timing,
		logger:        logger.With("user_id", operatorID),
	}
}

// Serve registers the client and starts its I/O pumps. It closes the
// connection if the hub has already stopped.
func (c *Client) Serve() {
	if !c.hub.register(c) {
		_ = c.conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// CloseSend safely closes the send channel exactly once
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) addSubscription(ticketID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[ticketID] = true
}

func (c *Client) removeSubscription(ticketID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, ticketID)
}

// Subscriptions returns a copy of the subscribed ticket ids
func (c *Client) Subscriptions() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]int64, 0, len(c.subscriptions))
	for ticketID := range c.subscriptions {
		subs = append(subs, ticketID)
	}
	return subs
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timing.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.timing.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		c.handleIncomingMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.timing.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-c.pong:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(domain.Event{Type: eventPong}); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload is the payload for subscribe/unsubscribe messages
type SubscribePayload struct {
	TicketID int64 `json:"ticket_id"`
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case MessageSubscribe:
		if ticketID, ok := c.ticketIDFrom(msg.Payload); ok {
			c.hub.subscribeClientToTicket(c, ticketID)
		}
	case MessageUnsubscribe:
		if ticketID, ok := c.ticketIDFrom(msg.Payload); ok {
			c.hub.unsubscribeClientFromTicket(c, ticketID)
		}
	case MessageWatch:
		c.hub.setWatching(c, true)
	case MessageUnwatch:
		c.hub.setWatching(c, false)
	case MessagePing:
		// send belongs to the hub goroutine, so replies go through pong.
		select {
		case c.pong <- struct{}{}:
		default:
		}
	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) ticketIDFrom(payload json.RawMessage) (int64, bool) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal subscribe payload", "error", err)
		return 0, false
	}
	if p.TicketID <= 0 {
		c.logger.Warn("invalid ticket id in subscribe request", "ticket_id", p.TicketID)
		return 0, false
	}
	return p.TicketID, true
}
