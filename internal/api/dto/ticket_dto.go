package dto

import (
	"time"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// TicketResponse is a ticket as shown on the dashboard.
type TicketResponse struct {
	TicketID    string          `json:"ticket_id"`
	IssueType   string          `json:"issue_type"`
	Severity    domain.Severity `json:"severity"`
	Description string          `json:"description"`
	Solution    string          `json:"solution"`
	Priority    domain.Priority `json:"priority"`
	Timestamp   time.Time       `json:"timestamp"`
	Color       string          `json:"color"`
}

// PriorityColor is the dashboard color for a priority.
func PriorityColor(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "red"
	case domain.PriorityMedium:
		return "orange"
	case domain.PriorityLow:
		return "green"
	default:
		return "gray"
	}
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t domain.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:    t.TicketID,
		IssueType:   t.IssueType,
		Severity:    t.Severity,
		Description: t.Description,
		Solution:    t.Solution,
		Priority:    t.Priority,
		Timestamp:   t.Timestamp,
		Color:       PriorityColor(t.Priority),
	}
}

// NewTicketResponses maps tickets, never returning nil.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicketResponse(t))
	}
	return out
}
