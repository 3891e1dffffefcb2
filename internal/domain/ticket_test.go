package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketDecodesZonelessTimestampAsUTC(t *testing.T) {
	doc := `{"ticket_id":"4f9a","issue_type":"Network Failure","severity":"Critical",
		"description":"Router failure detected in data center.","solution":"Replace the router.",
		"priority":"High","timestamp":"2024-10-01T12:30:00"}`

	var ticket Ticket
	require.NoError(t, json.Unmarshal([]byte(doc), &ticket))
	assert.Equal(t, "4f9a", ticket.TicketID)
	assert.Equal(t, PriorityHigh, ticket.Priority)
	assert.True(t, ticket.Timestamp.Equal(time.Date(2024, 10, 1, 12, 30, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, ticket.Timestamp.Location())
}

func TestTicketJSONRoundTrip(t *testing.T) {
	in := NewTicket("abc", IncidentDescriptor{
		IssueType: "Packet Loss",
		Severity:  SeverityMinor,
		Priority:  PriorityLow,
	}, time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC))

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":"2024-03-04T05:06:07Z"`)

	var out Ticket
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestTicketDecodesOffsetTimestamp(t *testing.T) {
	var ticket Ticket
	require.NoError(t, json.Unmarshal([]byte(`{"ticket_id":"x","timestamp":"2024-10-01T14:30:00+02:00"}`), &ticket))
	assert.True(t, ticket.Timestamp.Equal(time.Date(2024, 10, 1, 12, 30, 0, 0, time.UTC)))
}

func TestTicketRejectsGarbageTimestamp(t *testing.T) {
	var ticket Ticket
	assert.Error(t, json.Unmarshal([]byte(`{"ticket_id":"x","timestamp":"yesterday"}`), &ticket))
	assert.Error(t, json.Unmarshal([]byte(`{"ticket_id":"x","timestamp":17}`), &ticket))
}
