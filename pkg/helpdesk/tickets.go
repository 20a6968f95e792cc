package helpdesk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Scope selects which tickets a listing returns.
type Scope string

const (
	// ScopeMine lists the caller's own tickets (customers).
	ScopeMine Scope = "mine"
	// ScopeAll lists the whole queue (agents and admins).
	ScopeAll Scope = "all"
)

// NewTicket describes a ticket to raise.
type NewTicket struct {
	Subject    string
	Message    string
	Attachment *Attachment
}

// RaiseTicket creates a ticket. Subject and message are required and are
// checked before anything is sent. Triage fills category, priority and
// summary later; they show up on the next fetch.
func (c *Client) RaiseTicket(ctx context.Context, in NewTicket) (*Ticket, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return nil, &ValidationError{Field: "subject", Reason: "required"}
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, &ValidationError{Field: "message", Reason: "required"}
	}
	if in.Attachment != nil && in.Attachment.Reader == nil {
		in.Attachment = nil
	}
	b, err := multipartBody(url.Values{"subject": {in.Subject}, "message": {in.Message}}, in.Attachment)
	if err != nil {
		return nil, err
	}
	var t Ticket
	if err := c.call(ctx, http.MethodPost, "/api/tickets/raise", b, true, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// MyTickets lists the caller's tickets.
func (c *Client) MyTickets(ctx context.Context) ([]Ticket, error) {
	var tickets []Ticket
	if err := c.call(ctx, http.MethodGet, "/api/tickets/my-tickets", nil, true, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// TicketFilter narrows the staff queue on the server. Empty or "All" means no filter.
type TicketFilter struct {
	Category string
	Status   Status
}

// AllTickets lists the whole queue. Agents and admins only.
func (c *Client) AllTickets(ctx context.Context, filter TicketFilter) ([]Ticket, error) {
	q := url.Values{}
	if filter.Category != "" && filter.Category != CategoryAll {
		q.Set("category", filter.Category)
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	path := "/api/tickets/all"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var tickets []Ticket
	if err := c.call(ctx, http.MethodGet, path, nil, true, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListTickets lists by scope: customers see their own tickets, staff the queue.
func (c *Client) ListTickets(ctx context.Context, scope Scope) ([]Ticket, error) {
	switch scope {
	case ScopeMine:
		return c.MyTickets(ctx)
	case ScopeAll:
		return c.AllTickets(ctx, TicketFilter{})
	}
	return nil, &ValidationError{Field: "scope", Reason: "must be mine or all"}
}

// GetTicket fetches a ticket with its conversation.
func (c *Client) GetTicket(ctx context.Context, id int64) (*TicketDetail, error) {
	var d TicketDetail
	if err := c.call(ctx, http.MethodGet, ticketPath(id, ""), nil, true, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Messages returns a ticket's conversation in arrival order.
func (c *Client) Messages(ctx context.Context, id int64) ([]Message, error) {
	var msgs []Message
	if err := c.call(ctx, http.MethodGet, ticketPath(id, "/messages"), nil, true, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// History returns a ticket's audit trail. Agents and admins only.
func (c *Client) History(ctx context.Context, id int64) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if err := c.call(ctx, http.MethodGet, ticketPath(id, "/history"), nil, true, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Triage is an agent's category, priority and status for a ticket.
type Triage struct {
	Category string
	Priority Priority
	Status   Status
}

func (t Triage) validate() error {
	if strings.TrimSpace(t.Category) == "" || t.Category == CategoryAll {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	switch t.Priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return &ValidationError{Field: "priority", Reason: "must be High, Medium or Low"}
	}
	switch t.Status {
	case StatusOpen, StatusInProgress, StatusCompleted:
	default:
		return &ValidationError{Field: "status", Reason: "must be Open, In Progress or Completed"}
	}
	return nil
}

// UpdateTriage overwrites a ticket's category, priority and status. The
// server refuses Completed tickets with an error matching ErrTicketLocked.
func (c *Client) UpdateTriage(ctx context.Context, id int64, t Triage) (*Ticket, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	form := url.Values{"category": {t.Category}, "priority": {string(t.Priority)}, "status": {string(t.Status)}}
	var out Ticket
	if err := c.call(ctx, http.MethodPut, "/api/tickets/update/"+strconv.FormatInt(id, 10), formBody(form), true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTicketTriage is UpdateTriage for a ticket already fetched; a ticket
// known to be Completed is refused without a request.
func (c *Client) UpdateTicketTriage(ctx context.Context, ticket *Ticket, t Triage) (*Ticket, error) {
	if !CanEdit(ticket) {
		return nil, lockedError()
	}
	return c.UpdateTriage(ctx, ticket.ID, t)
}

// PostMessage appends to a ticket's conversation.
func (c *Client) PostMessage(ctx context.Context, id int64, text string) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "text", Reason: "required"}
	}
	var m Message
	if err := c.call(ctx, http.MethodPost, ticketPath(id, "/message"), formBody(url.Values{"text": {text}}), true, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReplyTo is PostMessage for a ticket already fetched; a ticket known to be
// Completed is refused without a request.
func (c *Client) ReplyTo(ctx context.Context, ticket *Ticket, text string) (*Message, error) {
	if !CanReply(ticket) {
		return nil, lockedError()
	}
	return c.PostMessage(ctx, ticket.ID, text)
}

// FetchAttachment downloads a ticket's file. A ticket without one yields ErrNotFound.
func (c *Client) FetchAttachment(ctx context.Context, id int64) ([]byte, string, error) {
	return c.download(ctx, "/api/tickets/file/"+strconv.FormatInt(id, 10))
}

func ticketPath(id int64, suffix string) string {
	return "/api/tickets/" + strconv.FormatInt(id, 10) + suffix
}

func lockedError() error {
	return &ValidationError{Field: "status", Reason: "ticket is completed", Err: ErrTicketLocked}
}
