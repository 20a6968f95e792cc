package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeTriage   TicketChangeType = "TRIAGE"
	ChangeTypeStatus   TicketChangeType = "STATUS"
	ChangeTypeAITriage TicketChangeType = "AI_TRIAGE"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID            int64
	TicketID      int64
	ChangedByRole Role
	ChangedByName string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
