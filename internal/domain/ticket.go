package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Ticket is an immutable, uniquely identified incident record. The JSON
// field names are the persisted format and must not change.
type Ticket struct {
	TicketID    string    `json:"ticket_id"`
	IssueType   string    `json:"issue_type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Solution    string    `json:"solution"`
	Priority    Priority  `json:"priority"`
	Timestamp   time.Time `json:"timestamp"`
}

// legacyTimestampLayouts are accepted when reading tickets written without a
// zone, as older ticket files are. Such values are taken as UTC.
var legacyTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON reads a ticket, accepting RFC3339 timestamps as well as
// zone-less ISO timestamps.
func (t *Ticket) UnmarshalJSON(data []byte) error {
	type plain Ticket
	aux := struct {
		*plain
		Timestamp *string `json:"timestamp"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Timestamp = time.Time{}
	if aux.Timestamp == nil || strings.TrimSpace(*aux.Timestamp) == "" {
		return nil
	}
	ts, err := parseTicketTimestamp(strings.TrimSpace(*aux.Timestamp))
	if err != nil {
		return err
	}
	t.Timestamp = ts
	return nil
}

func parseTicketTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	for _, layout := range legacyTimestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("ticket timestamp %q: unrecognized format", raw)
}

// NewTicket stamps a descriptor with its identity and creation time.
func NewTicket(id string, d IncidentDescriptor, createdAt time.Time) Ticket {
	return Ticket{
		TicketID:    id,
		IssueType:   d.IssueType,
		Severity:    d.Severity,
		Description: d.Description,
		Solution:    d.Solution,
		Priority:    d.Priority,
		Timestamp:   createdAt,
	}
}

// Descriptor returns the classified fields of the ticket.
func (t Ticket) Descriptor() IncidentDescriptor {
	return IncidentDescriptor{
		IssueType:   t.IssueType,
		Severity:    t.Severity,
		Description: t.Description,
		Solution:    t.Solution,
		Priority:    t.Priority,
	}
}
