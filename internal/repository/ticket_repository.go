package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter narrows ticket listings. Zero values match everything.
type TicketFilter struct {
	CustomerID *int64
	Category   string
	Status     domain.TicketStatus
}

// TriageUpdate is an agent overwrite of the triage fields.
type TriageUpdate struct {
	Category string
	Priority domain.TicketPriority
	Status   domain.TicketStatus
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListUntriaged(ctx context.Context, limit int) ([]domain.Ticket, error)
	// UpdateTriage overwrites category, priority and status unless the ticket
	// is Completed, in which case it returns ErrLocked.
	UpdateTriage(ctx context.Context, id int64, update TriageUpdate) (*domain.Ticket, error)
	// SetStatus moves the ticket from one status to another and reports
	// whether the row was in the expected status.
	SetStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (bool, error)
	// ApplyTriage stores automated triage only for untriaged, non-completed tickets.
	ApplyTriage(ctx context.Context, id int64, result domain.TriageResult) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.subject, t.message, t.category, t.priority, t.status, t.ai_summary,
               t.file_path, t.file_name, t.customer_id, COALESCE(u.name, 'Standard User'),
               t.triaged, t.created_at, t.updated_at`

const ticketFrom = `FROM tickets t LEFT JOIN users u ON u.id = t.customer_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (subject, message, category, priority, status, ai_summary, file_path, file_name, customer_id, triaged)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Message,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.AISummary,
		ticket.FilePath,
		ticket.FileName,
		ticket.CustomerID,
		ticket.Triaged,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE t.id=$1`, ticketColumns, ticketFrom)
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("t.customer_id=$%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("t.category=$%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY t.id ASC`,
		ticketColumns, ticketFrom, strings.Join(clauses, " AND "))
	return r.query(ctx, query, args...)
}

func (r *ticketRepository) ListUntriaged(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE t.triaged = FALSE AND t.status <> $1 ORDER BY t.id ASC LIMIT %d`,
		ticketColumns, ticketFrom, limit)
	return r.query(ctx, query, domain.TicketStatusCompleted)
}

func (r *ticketRepository) UpdateTriage(ctx context.Context, id int64, update TriageUpdate) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET category=$1, priority=$2, status=$3, triaged=TRUE, updated_at=NOW()
        WHERE id=$4 AND status <> $5`
	cmd, err := r.pool.Exec(ctx, query,
		update.Category,
		update.Priority,
		update.Status,
		id,
		domain.TicketStatusCompleted,
	)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrLocked
	}
	return r.GetByID(ctx, id)
}

func (r *ticketRepository) SetStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (bool, error) {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) ApplyTriage(ctx context.Context, id int64, result domain.TriageResult) (bool, error) {
	const query = `
        UPDATE tickets SET category=$1, priority=$2, ai_summary=$3, triaged=TRUE, updated_at=NOW()
        WHERE id=$4 AND triaged = FALSE AND status <> $5`
	cmd, err := r.pool.Exec(ctx, query,
		result.Category,
		result.Priority,
		result.Summary,
		id,
		domain.TicketStatusCompleted,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) query(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.Message,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AISummary,
		&ticket.FilePath,
		&ticket.FileName,
		&ticket.CustomerID,
		&ticket.CustomerName,
		&ticket.Triaged,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
