package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketUpdated      EventType = "ticket_updated"
	EventTicketCompleted    EventType = "ticket_completed"
	EventTicketMessageAdded EventType = "ticket_message_added"
	EventCorpusUpdated      EventType = "corpus_updated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role   domain.Role `json:"role"`
	Name   string      `json:"name"`
	UserID int64       `json:"user_id,omitempty"`
}

// SystemActor is used for changes made by background workers.
var SystemActor = Actor{Role: domain.RoleAdmin, Name: "AI Triage"}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, ticketID int64, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject       string `json:"subject"`
	CustomerID    int64  `json:"customer_id"`
	HasAttachment bool   `json:"has_attachment"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldCategory string                `json:"old_category"`
	NewCategory string                `json:"new_category"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	OldStatus   domain.TicketStatus   `json:"old_status"`
	NewStatus   domain.TicketStatus   `json:"new_status"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   int64       `json:"message_id"`
	SenderRole  domain.Role `json:"sender_role"`
	BodyPreview string      `json:"body_preview"`
}

// CorpusUpdatedPayload payload.
type CorpusUpdatedPayload struct {
	Corpus   domain.Corpus `json:"corpus"`
	Filename string        `json:"filename"`
	Chunks   int           `json:"chunks"`
	Deleted  bool          `json:"deleted"`
}
