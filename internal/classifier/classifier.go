// Package classifier turns error signals into incident descriptors using a
// data-driven rule table that can be swapped at runtime.
package classifier

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// Classifier is safe for concurrent use. Rules can be replaced while
// classifications are in flight.
type Classifier struct {
	rules atomic.Pointer[RuleSet]
}

// New returns a classifier over rules, or DefaultRules when rules is nil.
func New(rules *RuleSet) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	c := &Classifier{}
	c.rules.Store(rules)
	return c
}

// Rules returns the active rule table.
func (c *Classifier) Rules() *RuleSet {
	return c.rules.Load()
}

// SetRules replaces the active rule table.
func (c *Classifier) SetRules(rules *RuleSet) {
	if rules != nil {
		c.rules.Store(rules)
	}
}

// Classify maps an error code and device to a descriptor. It never fails:
// unknown codes yield Fallback.
func (c *Classifier) Classify(code, device string) domain.IncidentDescriptor {
	rs := c.rules.Load()
	rule, ok := rs.Match(code, device)
	if !ok {
		return Fallback
	}
	return domain.IncidentDescriptor{
		IssueType:   rule.IssueType,
		Severity:    rule.Severity,
		Description: rule.Description,
		Solution:    rule.Solution,
		Priority:    rs.Priority(rule.Severity),
	}
}

// ClassifyRecord classifies a single telemetry record.
func (c *Classifier) ClassifyRecord(r domain.TelemetryRecord) domain.IncidentDescriptor {
	return c.Classify(r.ErrorCode, r.SourceDevice)
}

// ClassifyWindow classifies an anomaly window by its dominant code and device
// and appends the window's extent to the description.
func (c *Classifier) ClassifyWindow(w domain.AnomalyWindow) domain.IncidentDescriptor {
	d := c.Classify(w.DominantCode, w.DominantDevice)
	d.Description = strings.TrimSpace(d.Description + " " + windowSummary(w))
	return d
}

func windowSummary(w domain.AnomalyWindow) string {
	device := w.DominantDevice
	if device == "" {
		device = "unknown device"
	}
	return fmt.Sprintf("%d errors on %s between %s and %s (peak excess %.2f).",
		w.ErrorCount, device,
		w.Start.UTC().Format(time.RFC3339), w.End.UTC().Format(time.RFC3339),
		w.PeakExcess)
}
