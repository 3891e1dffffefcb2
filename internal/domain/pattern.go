package domain

import (
	"encoding/json"
	"time"
)

// NullFloat is a component value that may be undefined, such as the trend at
// the edges of a moving-average decomposition. It marshals to null when not Valid.
type NullFloat struct {
	Float float64
	Valid bool
}

// Float wraps a defined value.
func Float(v float64) NullFloat {
	return NullFloat{Float: v, Valid: true}
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	if err := json.Unmarshal(b, &n.Float); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// DecompositionResult holds an additive seasonal decomposition over an
// hourly grid. All component slices share the length of Timeline.
type DecompositionResult struct {
	Start       time.Time   `json:"start"`
	PeriodHours int         `json:"period_hours"`
	Timeline    []time.Time `json:"timeline"`
	Observed    []float64   `json:"observed"`
	Trend       []NullFloat `json:"trend"`
	Seasonal    []float64   `json:"seasonal"`
	Residual    []NullFloat `json:"residual"`
}

// Len returns the number of hourly bins.
func (d *DecompositionResult) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Observed)
}

// HeatmapCell counts error records for one weekday/hour slot.
// DayOfWeek is 0 for Monday through 6 for Sunday.
type HeatmapCell struct {
	DayOfWeek  int `json:"day_of_week"`
	Hour       int `json:"hour"`
	ErrorCount int `json:"error_count"`
}

// AnomalyWindow is a contiguous run of hourly bins whose error rate exceeds
// the trend+seasonal baseline.
type AnomalyWindow struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Bins           int       `json:"bins"`
	PeakExcess     float64   `json:"peak_excess"`
	MeanObserved   float64   `json:"mean_observed"`
	ErrorCount     int       `json:"error_count"`
	DominantCode   string    `json:"dominant_error_code"`
	DominantDevice string    `json:"dominant_device"`
}
