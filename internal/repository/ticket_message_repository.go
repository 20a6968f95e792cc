package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// MessageRepository manages ticket thread messages.
type MessageRepository interface {
	// Create appends a message; it returns ErrLocked when the ticket is Completed.
	Create(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (ticket_id, sender_role, sender_name, text)
        SELECT $1,$2,$3,$4
        WHERE EXISTS (SELECT 1 FROM tickets WHERE id=$1 AND status <> $5)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderRole,
		msg.SenderName,
		msg.Text,
		domain.TicketStatusCompleted,
	).Scan(&msg.ID, &msg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLocked
	}
	return err
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender_role, sender_name, text, created_at
        FROM messages WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderRole,
			&msg.SenderName,
			&msg.Text,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
