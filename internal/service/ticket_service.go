package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/triage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const lockedMessage = "ticket is completed and can no longer be changed"

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets       repository.TicketRepository
	messages      repository.MessageRepository
	history       repository.HistoryRepository
	files         *storage.Store
	triager       triage.Triager
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	maxAttachment int64
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	MessageRepo   repository.MessageRepository
	HistoryRepo   repository.HistoryRepository
	Files         *storage.Store
	Triager       triage.Triager
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	MaxAttachment int64
}

// AttachmentInput is an uploaded file.
type AttachmentInput struct {
	Name   string
	Reader io.Reader
}

// RaiseInput describes a new ticket.
type RaiseInput struct {
	Subject    string
	Message    string
	Attachment *AttachmentInput
}

// TicketListFilter narrows the staff queue.
type TicketListFilter struct {
	Category string
	Status   string
}

// TriageInput is an agent's overrule of category, priority and status.
type TriageInput struct {
	Category string
	Priority string
	Status   string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	triager := deps.Triager
	if triager == nil {
		triager = triage.KeywordTriager{}
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		messages:      deps.MessageRepo,
		history:       deps.HistoryRepo,
		files:         deps.Files,
		triager:       triager,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		maxAttachment: deps.MaxAttachment,
	}
}

// Raise creates an Open ticket for a customer. Triage happens later, off the
// request path, through the ticket_created event.
func (s *TicketService) Raise(ctx context.Context, customer *domain.User, in RaiseInput) (*domain.Ticket, error) {
	if customer == nil || customer.Role != domain.RoleCustomer {
		return nil, apperrors.NewForbidden("only customers can raise tickets")
	}
	subject := strings.TrimSpace(in.Subject)
	message := strings.TrimSpace(in.Message)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", map[string]any{"field": "subject"})
	}
	if message == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}

	ticket := &domain.Ticket{
		Subject:      subject,
		Message:      message,
		Category:     domain.CategoryIT,
		Priority:     domain.TicketPriorityMedium,
		Status:       domain.TicketStatusOpen,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
	}

	if in.Attachment != nil && in.Attachment.Reader != nil {
		if s.files == nil {
			return nil, apperrors.NewInternalError(errors.New("attachment storage not configured"))
		}
		key, err := s.files.Save(in.Attachment.Name, in.Attachment.Reader, s.maxAttachment)
		if err != nil {
			if errors.Is(err, storage.ErrTooLarge) {
				return nil, apperrors.NewValidationError("attachment exceeds size limit", map[string]any{"field": "file", "max_bytes": s.maxAttachment})
			}
			return nil, apperrors.NewInternalError(err)
		}
		ticket.FilePath = key
		ticket.FileName = storage.SanitizeName(in.Attachment.Name)
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		if ticket.FilePath != "" {
			_ = s.files.Remove(ticket.FilePath)
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, userActor(customer), events.TicketCreatedPayload{
		Subject:       ticket.Subject,
		CustomerID:    customer.ID,
		HasAttachment: ticket.HasAttachment(),
	}))
	return ticket, nil
}

// ListForCustomer returns the customer's own tickets in creation order.
func (s *TicketService) ListForCustomer(ctx context.Context, customer *domain.User) ([]domain.Ticket, error) {
	if customer == nil || customer.Role != domain.RoleCustomer {
		return nil, apperrors.NewForbidden("customer role required")
	}
	id := customer.ID
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{CustomerID: &id})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// ListAll returns the whole queue for agents and admins.
func (s *TicketService) ListAll(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("agent or admin role required")
	}
	repoFilter := repository.TicketFilter{Category: strings.TrimSpace(filter.Category)}
	if strings.EqualFold(repoFilter.Category, "all") {
		repoFilter.Category = ""
	}
	if status := strings.TrimSpace(filter.Status); status != "" && !strings.EqualFold(status, "all") {
		if !domain.TicketStatus(status).Valid() {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
		repoFilter.Status = domain.TicketStatus(status)
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// Get returns a ticket and its conversation.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.Ticket, []domain.Message, error) {
	ticket, err := s.visibleTicket(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, id)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return ticket, msgs, nil
}

// Messages returns the conversation in arrival order.
func (s *TicketService) Messages(ctx context.Context, actor *domain.User, id int64) ([]domain.Message, error) {
	_, msgs, err := s.Get(ctx, actor, id)
	return msgs, err
}

// UpdateTriage overwrites category, priority and status. Completed tickets
// are immutable.
func (s *TicketService) UpdateTriage(ctx context.Context, actor *domain.User, id int64, in TriageInput) (*domain.Ticket, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("agent or admin role required")
	}
	update, err := parseTriageInput(in)
	if err != nil {
		return nil, err
	}

	current, err := s.ticket(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Locked() {
		return nil, apperrors.NewLocked(lockedMessage, map[string]any{"id": id})
	}

	updated, err := s.tickets.UpdateTriage(ctx, id, update)
	if err != nil {
		return nil, s.mapTicketErr(err, id)
	}

	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:      id,
		ChangedByRole: actor.Role,
		ChangedByName: actor.Name,
		ChangeType:    domain.ChangeTypeTriage,
		OldValue:      triageValues(current),
		NewValue:      triageValues(updated),
	})
	if current.Status != updated.Status {
		s.recordHistory(ctx, &domain.TicketHistory{
			TicketID:      id,
			ChangedByRole: actor.Role,
			ChangedByName: actor.Name,
			ChangeType:    domain.ChangeTypeStatus,
			OldValue:      map[string]any{"status": current.Status},
			NewValue:      map[string]any{"status": updated.Status},
		})
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketUpdated, id, userActor(actor), events.TicketUpdatedPayload{
		OldCategory: current.Category,
		NewCategory: updated.Category,
		OldPriority: current.Priority,
		NewPriority: updated.Priority,
		OldStatus:   current.Status,
		NewStatus:   updated.Status,
	}))
	if updated.Locked() {
		s.publishEvent(ctx, events.NewEvent(events.EventTicketCompleted, id, userActor(actor), nil))
	}
	return updated, nil
}

// PostMessage appends to the conversation. An agent reply moves an Open
// ticket to In Progress.
func (s *TicketService) PostMessage(ctx context.Context, actor *domain.User, id int64, text string) (*domain.Message, error) {
	if actor == nil || (actor.Role != domain.RoleAgent && actor.Role != domain.RoleCustomer) {
		return nil, apperrors.NewForbidden("only customers and agents can post messages")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("text is required", map[string]any{"field": "text"})
	}

	ticket, err := s.visibleTicket(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if ticket.Locked() {
		return nil, apperrors.NewLocked(lockedMessage, map[string]any{"id": id})
	}

	msg := &domain.Message{TicketID: id, SenderRole: actor.Role, SenderName: actor.Name, Text: text}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, s.mapTicketErr(err, id)
	}

	if actor.Role == domain.RoleAgent && ticket.Status == domain.TicketStatusOpen {
		moved, err := s.tickets.SetStatus(ctx, id, domain.TicketStatusOpen, domain.TicketStatusInProgress)
		if err != nil {
			s.logger.Warn("status bump failed", zap.Int64("ticket_id", id), zap.Error(err))
		} else if moved {
			s.recordHistory(ctx, &domain.TicketHistory{
				TicketID:      id,
				ChangedByRole: actor.Role,
				ChangedByName: actor.Name,
				ChangeType:    domain.ChangeTypeStatus,
				OldValue:      map[string]any{"status": domain.TicketStatusOpen},
				NewValue:      map[string]any{"status": domain.TicketStatusInProgress},
			})
		}
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketMessageAdded, id, userActor(actor), events.TicketMessageAddedPayload{
		MessageID:   msg.ID,
		SenderRole:  msg.SenderRole,
		BodyPreview: stringPreview(msg.Text, 120),
	}))
	return msg, nil
}

// Attachment resolves the stored file of a ticket.
func (s *TicketService) Attachment(ctx context.Context, actor *domain.User, id int64) (path string, name string, err error) {
	ticket, err := s.visibleTicket(ctx, actor, id)
	if err != nil {
		return "", "", err
	}
	if !ticket.HasAttachment() || s.files == nil || !s.files.Exists(ticket.FilePath) {
		return "", "", apperrors.NewNotFound("Attachment", map[string]any{"id": id})
	}
	path, err = s.files.Path(ticket.FilePath)
	if err != nil {
		return "", "", apperrors.NewNotFound("Attachment", map[string]any{"id": id})
	}
	name = ticket.FileName
	if name == "" {
		name = storage.OriginalName(ticket.FilePath)
	}
	return path, name, nil
}

// History returns the audit trail of a ticket.
func (s *TicketService) History(ctx context.Context, actor *domain.User, id int64) ([]domain.TicketHistory, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("agent or admin role required")
	}
	if _, err := s.ticket(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

// ApplyTriage runs automated triage for one ticket and stores the result
// unless the ticket was already triaged or completed in the meantime.
func (s *TicketService) ApplyTriage(ctx context.Context, id int64) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if ticket.Triaged || ticket.Locked() {
		return false, nil
	}

	in := triage.Input{Message: ticket.Message, AttachmentText: triage.NoAttachmentText}
	if ticket.HasAttachment() && s.files != nil {
		if path, err := s.files.Path(ticket.FilePath); err == nil {
			in.AttachmentText = triage.ExtractText(path)
		}
	}

	result, err := s.triager.Triage(ctx, in)
	if err != nil {
		return false, err
	}
	applied, err := s.tickets.ApplyTriage(ctx, id, result)
	if err != nil || !applied {
		return false, err
	}

	actor := events.SystemActor
	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:      id,
		ChangedByRole: actor.Role,
		ChangedByName: actor.Name,
		ChangeType:    domain.ChangeTypeAITriage,
		OldValue:      map[string]any{"category": ticket.Category, "priority": ticket.Priority},
		NewValue:      map[string]any{"category": result.Category, "priority": result.Priority, "ai_summary": result.Summary},
	})
	s.publishEvent(ctx, events.NewEvent(events.EventTicketUpdated, id, actor, events.TicketUpdatedPayload{
		OldCategory: ticket.Category,
		NewCategory: result.Category,
		OldPriority: ticket.Priority,
		NewPriority: result.Priority,
		OldStatus:   ticket.Status,
		NewStatus:   ticket.Status,
	}))
	return true, nil
}

// PendingTriage lists tickets still waiting for automated triage.
func (s *TicketService) PendingTriage(ctx context.Context, limit int) ([]domain.Ticket, error) {
	return s.tickets.ListUntriaged(ctx, limit)
}

func (s *TicketService) ticket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapTicketErr(err, id)
	}
	return ticket, nil
}

func (s *TicketService) visibleTicket(ctx context.Context, actor *domain.User, id int64) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.ticket(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleCustomer && ticket.CustomerID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

func (s *TicketService) mapTicketErr(err error, id int64) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("Ticket", map[string]any{"id": id})
	case errors.Is(err, repository.ErrLocked):
		return apperrors.NewLocked(lockedMessage, map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}

func (s *TicketService) recordHistory(ctx context.Context, entry *domain.TicketHistory) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("history write failed", zap.Int64("ticket_id", entry.TicketID), zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func parseTriageInput(in TriageInput) (repository.TriageUpdate, error) {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return repository.TriageUpdate{}, apperrors.NewValidationError("category is required", map[string]any{"field": "category"})
	}
	priority, ok := domain.ParsePriority(in.Priority)
	if !ok {
		return repository.TriageUpdate{}, apperrors.NewValidationError("priority must be High, Medium or Low", map[string]any{"field": "priority"})
	}
	status := domain.TicketStatus(strings.TrimSpace(in.Status))
	if !status.Valid() {
		return repository.TriageUpdate{}, apperrors.NewValidationError("status must be Open, In Progress or Completed", map[string]any{"field": "status"})
	}
	return repository.TriageUpdate{Category: category, Priority: priority, Status: status}, nil
}

func triageValues(t *domain.Ticket) map[string]any {
	return map[string]any{
		"category": t.Category,
		"priority": t.Priority,
		"status":   t.Status,
	}
}

func userActor(u *domain.User) events.Actor {
	return events.Actor{Role: u.Role, Name: u.Name, UserID: u.ID}
}

func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
