package domain

import "time"

// OKCode is the only error code that marks a healthy observation.
const OKCode = "OK00"

// TelemetryRecord is one timestamped observation from a monitored device.
type TelemetryRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	ErrorCode    string    `json:"error_code"`
	SourceDevice string    `json:"source_device"`
	LogMessage   string    `json:"log_message"`
	IsError      bool      `json:"is_error"`
}

// IsErrorCode reports whether code counts as an error. Every code other than
// OKCode weighs the same.
func IsErrorCode(code string) bool {
	return code != OKCode
}
