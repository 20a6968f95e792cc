package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/llm"
)

const promptTemplate = `Role: Senior Support Triage Agent
Inputs:
  - Message: %s
  - Attachment: %s

Task:
1. Classify into EXACTLY ONE category: [IT, HR, Facilities].
   - Facilities: Office maintenance, HotDesk bookings, gym access, cafeteria, fire drills, gates, building security.
   - IT: Software errors, VPN, MFA, hardware breakages, password locks, Wi-Fi.
   - HR: Payroll, maternity/paternity leave, sick leave, probation, benefits.

2. Set Priority using STRICT rules:
   - Low: General questions, amenity requests (Gym, Cafeteria, Desk Bookings), or scheduled non-emergency events (Drills).
   - Medium: Non-blocking issues like software requests, policy clarifications, or furniture repairs.
   - High: ACTIVE safety hazards (not drills), total work-stoppers (cannot log in), hardware breakages, or system outages.

3. Summarize the issue in exactly 2 concise bullet points.

Return ONLY JSON:
{
    "assigned_to": "IT/HR/Facilities",
    "priority": "Low/Medium/High",
    "ai_summary": "Point 1. Point 2."
}`

// LLMTriager asks a chat model to classify the ticket.
type LLMTriager struct {
	chat llm.Chatter
}

// NewLLMTriager wraps a chat client.
func NewLLMTriager(chat llm.Chatter) *LLMTriager {
	return &LLMTriager{chat: chat}
}

type triageReply struct {
	AssignedTo string          `json:"assigned_to"`
	Priority   string          `json:"priority"`
	Summary    json.RawMessage `json:"ai_summary"`
}

// Triage implements Triager.
func (t *LLMTriager) Triage(ctx context.Context, in Input) (domain.TriageResult, error) {
	attachment := in.AttachmentText
	if attachment == "" {
		attachment = NoAttachmentText
	}
	resp, err := t.chat.Chat(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: fmt.Sprintf(promptTemplate, in.Message, attachment)}},
		JSON:     true,
	})
	if err != nil {
		return domain.TriageResult{}, fmt.Errorf("triage request: %w", err)
	}

	var reply triageReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &reply); err != nil {
		return domain.TriageResult{}, fmt.Errorf("decode triage reply: %w", err)
	}
	return normalize(reply.AssignedTo, reply.Priority, flattenSummary(reply.Summary)), nil
}

// flattenSummary accepts either a string or a list of strings.
func flattenSummary(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, " ")
	}
	return ""
}
