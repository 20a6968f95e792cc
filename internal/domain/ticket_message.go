package domain

import "time"

// Message is one entry in a ticket's chat thread.
type Message struct {
	ID         int64
	TicketID   int64
	SenderRole Role
	SenderName string
	Text       string
	CreatedAt  time.Time
}
