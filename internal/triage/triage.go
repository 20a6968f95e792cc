// Package triage assigns a category, priority and short summary to new tickets.
package triage

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const (
	// NoAttachmentText is used when no readable attachment exists.
	NoAttachmentText = "No attachment content available."
	// NoSummaryText is used when the model returns no summary.
	NoSummaryText = "No summary provided"

	maxAttachmentChars = 2000
)

// Input is what the triager sees of a ticket.
type Input struct {
	Message        string
	AttachmentText string
}

// Triager classifies a ticket.
type Triager interface {
	Triage(ctx context.Context, in Input) (domain.TriageResult, error)
}

// normalize applies the defaults shared by every triager.
func normalize(category string, priority string, summary string) domain.TriageResult {
	category = strings.TrimSpace(category)
	if i := strings.Index(category, "/"); i >= 0 {
		category = strings.TrimSpace(category[:i])
	}
	result := domain.TriageResult{Category: domain.CategoryIT, Priority: domain.TicketPriorityMedium, Summary: NoSummaryText}
	for _, known := range domain.KnownCategories {
		if strings.EqualFold(category, known) {
			result.Category = known
		}
	}
	if p, ok := domain.ParsePriority(priority); ok {
		result.Priority = p
	}
	if s := strings.TrimSpace(summary); s != "" {
		result.Summary = s
	}
	return result
}
