package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UpdateTriageRequest payload for PUT /api/tickets/update/:id.
type UpdateTriageRequest struct {
	Category string `json:"category" form:"category"`
	Priority string `json:"priority" form:"priority"`
	Status   string `json:"status" form:"status"`
}

// PostMessageRequest payload for POST /api/tickets/:id/message.
type PostMessageRequest struct {
	Text string `json:"text" form:"text"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID           int64                 `json:"id"`
	Subject      string                `json:"subject"`
	Message      string                `json:"message"`
	Category     string                `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	AISummary    string                `json:"ai_summary"`
	FilePath     string                `json:"file_path,omitempty"`
	FileName     string                `json:"file_name,omitempty"`
	CustomerName string                `json:"customer_name"`
	Triaged      bool                  `json:"triaged"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// MessageResponse is one conversation entry.
type MessageResponse struct {
	ID         int64       `json:"id"`
	TicketID   int64       `json:"ticket_id"`
	SenderRole domain.Role `json:"sender_role"`
	SenderName string      `json:"sender_name"`
	Text       string      `json:"text"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TicketDetailResponse bundles a ticket with its conversation.
type TicketDetailResponse struct {
	Ticket   TicketResponse    `json:"ticket"`
	Messages []MessageResponse `json:"messages"`
}

// TicketHistoryResponse is an audit entry.
type TicketHistoryResponse struct {
	ID            int64                   `json:"id"`
	ChangedByRole domain.Role             `json:"changed_by_role"`
	ChangedByName string                  `json:"changed_by_name"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		Subject:      t.Subject,
		Message:      t.Message,
		Category:     t.Category,
		Priority:     t.Priority,
		Status:       t.Status,
		AISummary:    t.AISummary,
		FilePath:     t.FilePath,
		FileName:     t.FileName,
		CustomerName: t.CustomerName,
		Triaged:      t.Triaged,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewMessageResponse maps a message.
func NewMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		TicketID:   m.TicketID,
		SenderRole: m.SenderRole,
		SenderName: m.SenderName,
		Text:       m.Text,
		CreatedAt:  m.CreatedAt,
	}
}

// NewMessageResponses maps a slice of messages.
func NewMessageResponses(msgs []domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, NewMessageResponse(&msgs[i]))
	}
	return out
}

// NewHistoryResponses maps audit entries.
func NewHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TicketHistoryResponse{
			ID:            e.ID,
			ChangedByRole: e.ChangedByRole,
			ChangedByName: e.ChangedByName,
			ChangeType:    e.ChangeType,
			OldValue:      e.OldValue,
			NewValue:      e.NewValue,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}
