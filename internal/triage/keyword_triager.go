package triage

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/knowledge"
)

// KeywordTriager classifies tickets offline from keyword tables. It is used
// when no model API key is configured.
type KeywordTriager struct{}

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{domain.CategoryFacilities, []string{"office", "maintenance", "hotdesk", "desk", "booking", "gym", "cafeteria", "canteen", "drill", "fire", "gate", "building", "security", "parking", "furniture", "chair", "aircon", "leak", "elevator", "lift"}},
	{domain.CategoryHR, []string{"payroll", "salary", "payslip", "maternity", "paternity", "leave", "sick", "probation", "benefits", "benefit", "pension", "holiday", "vacation", "onboarding", "contract"}},
	{domain.CategoryIT, []string{"software", "error", "vpn", "mfa", "laptop", "hardware", "password", "locked", "wifi", "wi", "network", "email", "login", "printer", "monitor", "server", "outage", "install", "crash"}},
}

var highPhrases = []string{
	"cannot log in", "can't log in", "cant log in", "cannot login", "can't login", "locked out",
	"outage", "down", "broken", "broke", "smashed", "cracked", "not working",
	"smoke", "flood", "gas leak", "injury", "injured", "hazard", "emergency",
}

var lowPhrases = []string{
	"gym", "cafeteria", "canteen", "desk booking", "book a desk", "hotdesk", "drill",
	"question", "wondering", "how do i", "where is", "when is",
}

// Triage implements Triager.
func (KeywordTriager) Triage(_ context.Context, in Input) (domain.TriageResult, error) {
	text := in.Message
	if in.AttachmentText != "" && in.AttachmentText != NoAttachmentText {
		text += "\n" + in.AttachmentText
	}
	lower := strings.ToLower(text)

	terms := map[string]struct{}{}
	for _, term := range knowledge.Tokenize(lower) {
		terms[term] = struct{}{}
	}

	category, best := domain.CategoryIT, 0
	for _, entry := range categoryKeywords {
		score := 0
		for _, w := range entry.words {
			if _, ok := terms[w]; ok {
				score++
			}
		}
		if score > best {
			category, best = entry.category, score
		}
	}

	priority := domain.TicketPriorityMedium
	switch {
	case containsAny(lower, highPhrases) && !strings.Contains(lower, "drill"):
		priority = domain.TicketPriorityHigh
	case containsAny(lower, lowPhrases):
		priority = domain.TicketPriorityLow
	}

	return normalize(category, string(priority), firstSentences(in.Message, 2)), nil
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// firstSentences returns up to n sentences of text.
func firstSentences(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	var out strings.Builder
	count := 0
	for i, r := range text {
		out.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			next := i + 1
			if next >= len(text) || text[next] == ' ' {
				count++
				if count == n {
					break
				}
			}
		}
	}
	return strings.TrimSpace(out.String())
}
