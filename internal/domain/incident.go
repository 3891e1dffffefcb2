package domain

// Severity grades how bad an incident is.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityMajor    Severity = "Major"
	SeverityMinor    Severity = "Minor"
	SeverityInfo     Severity = "Info"
	SeverityUnknown  Severity = "Unknown"
)

// Priority is the urgency attached to a ticket.
type Priority string

const (
	PriorityHigh    Priority = "High"
	PriorityMedium  Priority = "Medium"
	PriorityLow     Priority = "Low"
	PriorityUnknown Priority = "Unknown"
)

// Valid reports whether p is one of the four known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityUnknown:
		return true
	default:
		return false
	}
}

// Rank orders priorities; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// IncidentDescriptor is the classified characterization of an anomaly
// before it is persisted as a ticket.
type IncidentDescriptor struct {
	IssueType   string   `json:"issue_type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Solution    string   `json:"solution"`
	Priority    Priority `json:"priority"`
}
