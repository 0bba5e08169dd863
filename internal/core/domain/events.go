package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventTicketAssigned   EventType = "TICKET_ASSIGNED"
	EventTicketUnassigned EventType = "TICKET_UNASSIGNED"
	EventStatusUpdated    EventType = "STATUS_UPDATED"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type     EventType   `json:"type"`
	Payload  interface{} `json:"payload"`
	TicketID int64       `json:"ticket_id"` // Used for routing to specific ticket "rooms"
}
