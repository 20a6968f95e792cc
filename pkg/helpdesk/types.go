package helpdesk

import "time"

// Role is the dashboard a session belongs to.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleAgent    Role = "agent"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAgent || r == RoleCustomer
}

// Status is a ticket lifecycle state.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusCompleted}

// Priority is the triage urgency of a ticket.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Categories offered by the queue filters. Agents may set any non-empty category.
const (
	CategoryAll        = "All"
	CategoryIT         = "IT"
	CategoryHR         = "HR"
	CategoryFacilities = "Facilities"
)

// Corpus names a document collection.
type Corpus string

const (
	CorpusKB  Corpus = "kb"
	CorpusFAQ Corpus = "faq"
)

// User is an account as returned by the admin endpoints.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Ticket is a support request.
type Ticket struct {
	ID           int64     `json:"id"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message"`
	Category     string    `json:"category"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	AISummary    string    `json:"ai_summary"`
	FilePath     string    `json:"file_path,omitempty"`
	FileName     string    `json:"file_name,omitempty"`
	CustomerName string    `json:"customer_name"`
	Triaged      bool      `json:"triaged"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is one entry of a ticket conversation.
type Message struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	SenderRole Role      `json:"sender_role"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketDetail is a ticket with its conversation.
type TicketDetail struct {
	Ticket   Ticket    `json:"ticket"`
	Messages []Message `json:"messages"`
}

// HistoryEntry is one audit record of a ticket.
type HistoryEntry struct {
	ID            int64          `json:"id"`
	ChangedByRole Role           `json:"changed_by_role"`
	ChangedByName string         `json:"changed_by_name"`
	ChangeType    string         `json:"change_type"`
	OldValue      map[string]any `json:"old_value"`
	NewValue      map[string]any `json:"new_value"`
	CreatedAt     time.Time      `json:"created_at"`
}

// FAQ is a question/answer pair.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Answer is the assistant's reply to a question.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// UploadResult reports an indexed corpus file.
type UploadResult struct {
	Corpus   Corpus `json:"corpus"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}
