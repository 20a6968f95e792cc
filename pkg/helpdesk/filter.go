package helpdesk

import "strings"

// FilterByCategory returns the tickets of one category in their original
// order. An empty category or "All" returns every ticket.
func FilterByCategory(tickets []Ticket, category string) []Ticket {
	if category == "" || category == CategoryAll {
		return tickets
	}
	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// FilterFAQs keeps entries whose question or answer contains query, ignoring case.
func FilterFAQs(entries []FAQ, query string) []FAQ {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entries
	}
	out := make([]FAQ, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Question), q) || strings.Contains(strings.ToLower(e.Answer), q) {
			out = append(out, e)
		}
	}
	return out
}

// CountByStatus tallies tickets for dashboard counters. Every status is present.
func CountByStatus(tickets []Ticket) map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, t := range tickets {
		counts[t.Status]++
	}
	return counts
}

// CanEdit reports whether the triage form should be offered.
func CanEdit(t *Ticket) bool {
	return t != nil && t.Status != StatusCompleted
}

// CanReply reports whether the reply box should be offered.
func CanReply(t *Ticket) bool {
	return CanEdit(t)
}
