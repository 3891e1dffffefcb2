package telemetry

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// Canonical column names.
const (
	ColumnTimestamp    = "timestamp"
	ColumnErrorCode    = "error_code"
	ColumnSourceDevice = "source_device"
	ColumnLogMessage   = "log_message"
)

var requiredColumns = []string{ColumnTimestamp, ColumnErrorCode}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"20060102150405",
	"20060102",
}

// CanonicalColumn folds a raw column name to its canonical form.
func CanonicalColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Normalize validates a raw table and returns its records sorted ascending by
// timestamp. Equal timestamps keep their input order. Timestamps are
// converted to UTC.
//
// Missing required columns fail with *SchemaError; an unparsable timestamp
// fails the whole batch with *FormatError.
func Normalize(table Table) ([]domain.TelemetryRecord, error) {
	index := make(map[string]int, len(table.Columns))
	for i, col := range table.Columns {
		name := CanonicalColumn(col)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]domain.TelemetryRecord, 0, len(table.Rows))
	for rowIdx, row := range table.Rows {
		raw := cell(row, ColumnTimestamp)
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return nil, &FormatError{Row: rowIdx, Field: ColumnTimestamp, Value: raw, Err: err}
		}
		code := cell(row, ColumnErrorCode)
		records = append(records, domain.TelemetryRecord{
			Timestamp:    ts.UTC(),
			ErrorCode:    code,
			SourceDevice: cell(row, ColumnSourceDevice),
			LogMessage:   cell(row, ColumnLogMessage),
			IsError:      domain.IsErrorCode(code),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

// ParseTimestamp parses a telemetry timestamp. Fixed layouts, including
// compact YYYYMMDD[hhmmss] dates, and then integer Unix seconds are tried first; anything else goes through natural-language date
// parsing. Values without a zone are taken as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, nil
		}
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return time.Time{}, errors.New("negative unix timestamp")
		}
		return time.Unix(secs, 0).UTC(), nil
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		PreferredDateSource: dps.CurrentPeriod,
	}
	parsed, err := parser.Parse(cfg, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp: %w", err)
	}
	if parsed.IsZero() {
		return time.Time{}, errors.New("unrecognized timestamp")
	}
	return parsed.Time, nil
}
