package classifier

import (
	"errors"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// Rule maps an error code, optionally narrowed to devices matching a glob,
// to the text of an incident.
type Rule struct {
	ErrorCode   string          `yaml:"error_code"`
	Device      string          `yaml:"device,omitempty"`
	IssueType   string          `yaml:"issue_type"`
	Severity    domain.Severity `yaml:"severity"`
	Description string          `yaml:"description"`
	Solution    string          `yaml:"solution"`
}

// RuleSet is the classification table plus the severity→priority order.
type RuleSet struct {
	Priorities map[domain.Severity]domain.Priority `yaml:"priorities"`
	Rules      []Rule                              `yaml:"rules"`
}

// Fallback is returned for signals no rule matches.
var Fallback = domain.IncidentDescriptor{
	IssueType:   "Unclassified Error",
	Severity:    domain.SeverityUnknown,
	Description: "No classification rule matches this error.",
	Solution:    "Investigate the device logs manually.",
	Priority:    domain.PriorityUnknown,
}

// DefaultPriorities is the fixed severity order.
func DefaultPriorities() map[domain.Severity]domain.Priority {
	return map[domain.Severity]domain.Priority{
		domain.SeverityCritical: domain.PriorityHigh,
		domain.SeverityMajor:    domain.PriorityMedium,
		domain.SeverityMinor:    domain.PriorityLow,
		domain.SeverityInfo:     domain.PriorityLow,
	}
}

// DefaultRules covers the error codes emitted by the monitored fleet.
func DefaultRules() *RuleSet {
	return &RuleSet{
		Priorities: DefaultPriorities(),
		Rules: []Rule{
			{
				ErrorCode:   "E001",
				IssueType:   "High CPU Utilization",
				Severity:    domain.SeverityMajor,
				Description: "CPU utilization exceeded the safe operating threshold.",
				Solution:    "Identify runaway processes and rebalance traffic.",
			},
			{
				ErrorCode:   "E002",
				IssueType:   "Memory Exhaustion",
				Severity:    domain.SeverityMajor,
				Description: "Memory usage exceeded the safe operating threshold.",
				Solution:    "Restart leaking services and review memory limits.",
			},
			{
				ErrorCode:   "E003",
				IssueType:   "Network Connectivity Loss",
				Severity:    domain.SeverityCritical,
				Description: "Device lost network connectivity.",
				Solution:    "Check uplinks and interface status.",
			},
			{
				ErrorCode:   "E003",
				Device:      "router-*",
				IssueType:   "Network Failure",
				Severity:    domain.SeverityCritical,
				Description: "Router failure detected in data center.",
				Solution:    "Replace the router.",
			},
			{
				ErrorCode:   "E004",
				IssueType:   "Packet Loss",
				Severity:    domain.SeverityMinor,
				Description: "Packet loss detected on device interfaces.",
				Solution:    "Inspect cabling and interface error counters.",
			},
			{
				ErrorCode:   "E005",
				IssueType:   "Authentication Failure",
				Severity:    domain.SeverityMajor,
				Description: "Repeated authentication failures on the device.",
				Solution:    "Audit access logs and rotate credentials.",
			},
		},
	}
}

// LoadRules reads a YAML rule table from disk.
func LoadRules(filePath string) (*RuleSet, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read classifier rules %s: %w", filePath, err)
	}
	rs, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("classifier rules %s: %w", filePath, err)
	}
	return rs, nil
}

// ParseRules decodes and validates a YAML rule table. A table without a
// priorities section uses DefaultPriorities.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	if len(rs.Priorities) == 0 {
		rs.Priorities = DefaultPriorities()
	}
	return &rs, nil
}

// Validate checks that every rule is usable and that the priority table
// only maps to known priorities.
func (rs *RuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return errors.New("no rules defined")
	}
	for sev, p := range rs.Priorities {
		if !p.Valid() {
			return fmt.Errorf("priority for severity %q: %q is not one of High, Medium, Low, Unknown", sev, p)
		}
	}
	for i, r := range rs.Rules {
		if r.ErrorCode == "" {
			return fmt.Errorf("rule %d: error_code is required", i)
		}
		if r.IssueType == "" {
			return fmt.Errorf("rule %d: issue_type is required", i)
		}
		if r.Device != "" {
			if _, err := path.Match(r.Device, ""); err != nil {
				return fmt.Errorf("rule %d: device pattern %q: %w", i, r.Device, err)
			}
		}
	}
	return nil
}

// Priority derives a priority from severity. Unlisted severities, and
// entries outside the known priorities, map to PriorityUnknown.
func (rs *RuleSet) Priority(s domain.Severity) domain.Priority {
	if p, ok := rs.Priorities[s]; ok && p.Valid() {
		return p
	}
	return domain.PriorityUnknown
}

const (
	matchNone = iota
	matchAnyDevice
	matchGlob
	matchExact
)

// Match returns the most specific rule for the code and device: an exact
// device name beats a glob, which beats a rule without a device. Equal
// specificity goes to the earlier rule.
func (rs *RuleSet) Match(code, device string) (Rule, bool) {
	var best Rule
	bestScore := matchNone
	for _, r := range rs.Rules {
		if r.ErrorCode != code {
			continue
		}
		score := deviceMatch(r.Device, device)
		if score > bestScore {
			best, bestScore = r, score
		}
	}
	return best, bestScore != matchNone
}

func deviceMatch(pattern, device string) int {
	switch {
	case pattern == "" || pattern == "*":
		return matchAnyDevice
	case pattern == device:
		return matchExact
	}
	if ok, _ := path.Match(pattern, device); ok {
		return matchGlob
	}
	return matchNone
}
