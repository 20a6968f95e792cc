package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

func TestUserEmailUnique(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()
	if err := users.Create(ctx, &domain.User{Name: "A", Email: "a@example.com", Role: domain.RoleCustomer}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := users.Create(ctx, &domain.User{Name: "B", Email: "a@example.com", Role: domain.RoleAgent})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestTicketListJoinsCustomerAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	customer := &domain.User{Name: "Dana", Email: "dana@example.com", Role: domain.RoleCustomer}
	if err := store.Users().Create(ctx, customer); err != nil {
		t.Fatal(err)
	}
	for _, category := range []string{"IT", "HR", "IT"} {
		ticket := &domain.Ticket{Subject: "s", Message: "m", Category: category, Status: domain.TicketStatusOpen, CustomerID: customer.ID}
		if err := store.Tickets().Create(ctx, ticket); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Tickets().List(ctx, repository.TicketFilter{Category: "IT"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("unexpected IT tickets: %+v", got)
	}
	if got[0].CustomerName != "Dana" {
		t.Errorf("customer name = %q", got[0].CustomerName)
	}
}

func TestCompletedTicketRejectsWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	ticket := &domain.Ticket{Subject: "s", Message: "m", Status: domain.TicketStatusOpen}
	if err := store.Tickets().Create(ctx, ticket); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Tickets().UpdateTriage(ctx, ticket.ID, repository.TriageUpdate{Category: "IT", Priority: domain.TicketPriorityLow, Status: domain.TicketStatusCompleted}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := store.Tickets().UpdateTriage(ctx, ticket.ID, repository.TriageUpdate{Category: "HR", Priority: domain.TicketPriorityLow, Status: domain.TicketStatusOpen})
	if !errors.Is(err, repository.ErrLocked) {
		t.Fatalf("expected ErrLocked on update, got %v", err)
	}
	err = store.Messages().Create(ctx, &domain.Message{TicketID: ticket.ID, Text: "hello"})
	if !errors.Is(err, repository.ErrLocked) {
		t.Fatalf("expected ErrLocked on message, got %v", err)
	}
	applied, err := store.Tickets().ApplyTriage(ctx, ticket.ID, domain.TriageResult{Category: "HR"})
	if err != nil || applied {
		t.Fatalf("triage should not apply to completed ticket: %v %v", applied, err)
	}
}

func TestApplyTriageOnlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	ticket := &domain.Ticket{Subject: "s", Message: "m", Status: domain.TicketStatusOpen}
	_ = store.Tickets().Create(ctx, ticket)

	applied, _ := store.Tickets().ApplyTriage(ctx, ticket.ID, domain.TriageResult{Category: "HR", Priority: domain.TicketPriorityHigh, Summary: "x"})
	if !applied {
		t.Fatal("first triage should apply")
	}
	applied, _ = store.Tickets().ApplyTriage(ctx, ticket.ID, domain.TriageResult{Category: "IT"})
	if applied {
		t.Fatal("second triage should be ignored")
	}
	untriaged, _ := store.Tickets().ListUntriaged(ctx, 10)
	if len(untriaged) != 0 {
		t.Fatalf("expected no untriaged tickets, got %d", len(untriaged))
	}
}

func TestCorpusReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	corpus := NewStore().Corpus()

	_ = corpus.ReplaceFile(ctx, domain.CorpusKB, "vpn.txt", []string{"a", "b"})
	_ = corpus.ReplaceFile(ctx, domain.CorpusKB, "vpn.txt", []string{"c"})
	_ = corpus.ReplaceFile(ctx, domain.CorpusFAQ, "faq.txt", []string{"q"})

	chunks, _ := corpus.ListChunks(ctx, domain.CorpusKB)
	if len(chunks) != 1 || chunks[0].Content != "c" {
		t.Fatalf("last write should win, got %+v", chunks)
	}
	if err := corpus.DeleteFile(ctx, domain.CorpusKB, "vpn.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := corpus.DeleteFile(ctx, domain.CorpusKB, "vpn.txt"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	names, _ := corpus.ListFilenames(ctx, domain.CorpusFAQ)
	if len(names) != 1 || names[0] != "faq.txt" {
		t.Fatalf("faq corpus affected: %v", names)
	}
}
