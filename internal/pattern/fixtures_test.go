package pattern

import (
	"time"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

var fixtureStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday

// peakHourRecords builds days×24 hours of telemetry at 15-minute intervals.
// Three of four samples in each 09:00–17:59 hour are errors; one in four
// elsewhere; none between 00:00 and 06:59.
func peakHourRecords(days int) []domain.TelemetryRecord {
	devices := []string{"switch-02", "firewall-03", "gateway-04", "load-balancer-05"}
	var records []domain.TelemetryRecord
	for h := 0; h < days*24; h++ {
		hour := h % 24
		errorsThisHour := 1
		switch {
		case hour >= 9 && hour <= 17:
			errorsThisHour = 3
		case hour <= 6:
			errorsThisHour = 0
		}
		for q := 0; q < 4; q++ {
			code := domain.OKCode
			if q < errorsThisHour {
				code = "E001"
			}
			records = append(records, domain.TelemetryRecord{
				Timestamp:    fixtureStart.Add(time.Duration(h)*time.Hour + time.Duration(q)*15*time.Minute),
				ErrorCode:    code,
				SourceDevice: devices[q],
				IsError:      code != domain.OKCode,
			})
		}
	}
	return records
}

// withSpike replaces every sample in the given hour with E003 from router-01.
func withSpike(records []domain.TelemetryRecord, hourIndex int) []domain.TelemetryRecord {
	out := make([]domain.TelemetryRecord, len(records))
	copy(out, records)
	from := fixtureStart.Add(time.Duration(hourIndex) * time.Hour)
	to := from.Add(time.Hour)
	for i := range out {
		if !out[i].Timestamp.Before(from) && out[i].Timestamp.Before(to) {
			out[i].ErrorCode = "E003"
			out[i].SourceDevice = "router-01"
			out[i].IsError = true
		}
	}
	return out
}
