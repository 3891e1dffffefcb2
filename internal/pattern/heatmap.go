package pattern

import (
	"time"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// Heatmap sums error records into a dense weekday×hour grid of 168 cells,
// ordered by day (Monday first) then hour. Cells use UTC wall-clock time.
func Heatmap(records []domain.TelemetryRecord) []domain.HeatmapCell {
	var grid [7][24]int
	for _, r := range records {
		if !r.IsError {
			continue
		}
		ts := r.Timestamp.UTC()
		grid[weekdayIndex(ts)][ts.Hour()]++
	}

	cells := make([]domain.HeatmapCell, 0, 7*24)
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			cells = append(cells, domain.HeatmapCell{DayOfWeek: day, Hour: hour, ErrorCount: grid[day][hour]})
		}
	}
	return cells
}

func weekdayIndex(ts time.Time) int {
	return (int(ts.Weekday()) + 6) % 7
}
