// Package memory holds mutex-guarded repository implementations used when no
// Postgres DSN is configured and in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Store is a single in-process database shared by all repositories so ticket
// listings can resolve customer names like the SQL join does.
type Store struct {
	mu sync.RWMutex

	users    map[int64]domain.User
	tickets  map[int64]domain.Ticket
	messages []domain.Message
	history  []domain.TicketHistory
	chunks   []domain.Chunk

	nextUser    int64
	nextTicket  int64
	nextMessage int64
	nextHistory int64

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[int64]domain.User),
		tickets: make(map[int64]domain.Ticket),
		now:     time.Now,
	}
}

// Users returns a UserRepository view.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// Tickets returns a TicketRepository view.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s} }

// Messages returns a MessageRepository view.
func (s *Store) Messages() repository.MessageRepository { return &messageRepo{s} }

// History returns a HistoryRepository view.
func (s *Store) History() repository.HistoryRepository { return &historyRepo{s} }

// Corpus returns a CorpusRepository view.
func (s *Store) Corpus() repository.CorpusRepository { return &corpusRepo{s} }

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	r.s.nextUser++
	user.ID = r.s.nextUser
	user.CreatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.s.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	current.Name = user.Name
	current.Email = user.Email
	current.PasswordHash = user.PasswordHash
	r.s.users[user.ID] = current
	return nil
}

func (r *userRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.User{}
	for _, user := range r.s.users {
		if user.Role == role {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextTicket++
	ticket.ID = r.s.nextTicket
	ticket.CreatedAt = r.s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.tickets[ticket.ID] = *ticket
	ticket.CustomerName = r.s.customerName(ticket.CustomerID)
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.ticket(id)
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Ticket{}
	for _, id := range r.s.ticketIDs() {
		ticket := r.s.tickets[id]
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Category != "" && ticket.Category != filter.Category {
			continue
		}
		if filter.Status != "" && ticket.Status != filter.Status {
			continue
		}
		ticket.CustomerName = r.s.customerName(ticket.CustomerID)
		result = append(result, ticket)
	}
	return result, nil
}

func (r *ticketRepo) ListUntriaged(_ context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Ticket{}
	for _, id := range r.s.ticketIDs() {
		ticket := r.s.tickets[id]
		if ticket.Triaged || ticket.Locked() {
			continue
		}
		ticket.CustomerName = r.s.customerName(ticket.CustomerID)
		result = append(result, ticket)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *ticketRepo) UpdateTriage(_ context.Context, id int64, update repository.TriageUpdate) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ticket.Locked() {
		return nil, repository.ErrLocked
	}
	ticket.Category = update.Category
	ticket.Priority = update.Priority
	ticket.Status = update.Status
	ticket.Triaged = true
	ticket.UpdatedAt = r.s.now()
	r.s.tickets[id] = ticket
	return r.s.ticket(id)
}

func (r *ticketRepo) SetStatus(_ context.Context, id int64, from, to domain.TicketStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.Status != from {
		return false, nil
	}
	ticket.Status = to
	ticket.UpdatedAt = r.s.now()
	r.s.tickets[id] = ticket
	return true, nil
}

func (r *ticketRepo) ApplyTriage(_ context.Context, id int64, result domain.TriageResult) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.Triaged || ticket.Locked() {
		return false, nil
	}
	ticket.Category = result.Category
	ticket.Priority = result.Priority
	ticket.AISummary = result.Summary
	ticket.Triaged = true
	ticket.UpdatedAt = r.s.now()
	r.s.tickets[id] = ticket
	return true, nil
}

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[msg.TicketID]
	if !ok || ticket.Locked() {
		return repository.ErrLocked
	}
	r.s.nextMessage++
	msg.ID = r.s.nextMessage
	msg.CreatedAt = r.s.now()
	r.s.messages = append(r.s.messages, *msg)
	return nil
}

func (r *messageRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Message{}
	for _, msg := range r.s.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextHistory++
	entry.ID = r.s.nextHistory
	entry.CreatedAt = r.s.now()
	r.s.history = append(r.s.history, *entry)
	return nil
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.TicketHistory{}
	for _, entry := range r.s.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type corpusRepo struct{ s *Store }

func (r *corpusRepo) ReplaceFile(_ context.Context, corpus domain.Corpus, filename string, chunks []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.chunks = r.s.withoutFile(corpus, filename)
	for i, content := range chunks {
		r.s.chunks = append(r.s.chunks, domain.Chunk{Corpus: corpus, Filename: filename, Seq: i, Content: content})
	}
	return nil
}

func (r *corpusRepo) DeleteFile(_ context.Context, corpus domain.Corpus, filename string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.withoutFile(corpus, filename)
	if len(kept) == len(r.s.chunks) {
		return repository.ErrNotFound
	}
	r.s.chunks = kept
	return nil
}

func (r *corpusRepo) ListFilenames(_ context.Context, corpus domain.Corpus) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := map[string]struct{}{}
	names := []string{}
	for _, chunk := range r.s.chunks {
		if chunk.Corpus != corpus {
			continue
		}
		if _, ok := seen[chunk.Filename]; ok {
			continue
		}
		seen[chunk.Filename] = struct{}{}
		names = append(names, chunk.Filename)
	}
	sort.Strings(names)
	return names, nil
}

func (r *corpusRepo) ListChunks(_ context.Context, corpus domain.Corpus) ([]domain.Chunk, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := []domain.Chunk{}
	for _, chunk := range r.s.chunks {
		if chunk.Corpus == corpus {
			result = append(result, chunk)
		}
	}
	return result, nil
}

// caller holds the lock.
func (s *Store) ticket(id int64) (*domain.Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ticket.CustomerName = s.customerName(ticket.CustomerID)
	return &ticket, nil
}

func (s *Store) customerName(id int64) string {
	if user, ok := s.users[id]; ok {
		return user.Name
	}
	return "Standard User"
}

func (s *Store) ticketIDs() []int64 {
	ids := make([]int64, 0, len(s.tickets))
	for id := range s.tickets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) withoutFile(corpus domain.Corpus, filename string) []domain.Chunk {
	kept := make([]domain.Chunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if chunk.Corpus == corpus && chunk.Filename == filename {
			continue
		}
		kept = append(kept, chunk)
	}
	return kept
}
