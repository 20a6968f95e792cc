package domain

import "testing"

func TestParsePriority(t *testing.T) {
	cases := map[string]TicketPriority{
		"high":     TicketPriorityHigh,
		" Medium ": TicketPriorityMedium,
		"LOW":      TicketPriorityLow,
	}
	for raw, want := range cases {
		got, ok := ParsePriority(raw)
		if !ok || got != want {
			t.Errorf("ParsePriority(%q) = %q, %v", raw, got, ok)
		}
	}
	if _, ok := ParsePriority("urgent"); ok {
		t.Error("urgent is not a priority")
	}
}

func TestTicketLocked(t *testing.T) {
	ticket := &Ticket{Status: TicketStatusInProgress}
	if ticket.Locked() {
		t.Fatal("in-progress ticket should not be locked")
	}
	ticket.Status = TicketStatusCompleted
	if !ticket.Locked() {
		t.Fatal("completed ticket should be locked")
	}
}

func TestRoleHelpers(t *testing.T) {
	if !RoleAgent.IsStaff() || !RoleAdmin.IsStaff() || RoleCustomer.IsStaff() {
		t.Error("staff classification wrong")
	}
	if Role("owner").Valid() {
		t.Error("unknown role reported valid")
	}
	if !CorpusFAQ.Valid() || Corpus("docs").Valid() {
		t.Error("corpus validation wrong")
	}
}
