package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusCompleted  TicketStatus = "Completed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusCompleted:
		return true
	}
	return false
}

// TicketPriority enumerates triage urgency.
type TicketPriority string

const (
	TicketPriorityHigh   TicketPriority = "High"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityLow    TicketPriority = "Low"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// ParsePriority normalizes case ("high", "HIGH") to a known priority.
func ParsePriority(raw string) (TicketPriority, bool) {
	for _, p := range []TicketPriority{TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow} {
		if strings.EqualFold(strings.TrimSpace(raw), string(p)) {
			return p, true
		}
	}
	return "", false
}

// Categories the triage step chooses from. Agents may set any non-empty category.
const (
	CategoryIT         = "IT"
	CategoryHR         = "HR"
	CategoryFacilities = "Facilities"
)

// KnownCategories lists triage categories in prompt order.
var KnownCategories = []string{CategoryIT, CategoryHR, CategoryFacilities}

// Ticket is a customer support request.
type Ticket struct {
	ID           int64
	Subject      string
	Message      string
	Category     string
	Priority     TicketPriority
	Status       TicketStatus
	AISummary    string
	FilePath     string
	FileName     string
	CustomerID   int64
	CustomerName string
	Triaged      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Locked is true once the ticket reached Completed; no edits or messages follow.
func (t *Ticket) Locked() bool {
	return t.Status == TicketStatusCompleted
}

// HasAttachment reports whether a file was uploaded with the ticket.
func (t *Ticket) HasAttachment() bool {
	return t.FilePath != ""
}

// TriageResult carries the fields assigned by automated triage.
type TriageResult struct {
	Category string
	Priority TicketPriority
	Summary  string
}
