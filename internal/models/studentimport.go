package models

import "time"

// Import error severities.
const (
	ImportSeverityError   = "error"
	ImportSeverityWarning = "warning"
)

// ImportRowError locates one problem inside a submitted import batch.
type ImportRowError struct {
	Row      int    `json:"row"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ImportResult summarises a bulk student import run. The write phase is
// all-or-nothing: SuccessCount is either zero or TotalRows.
type ImportResult struct {
	TotalRows            int              `json:"total_rows"`
	SuccessCount         int              `json:"success_count"`
	FailureCount         int              `json:"failure_count"`
	SuccessfulRowNumbers []int            `json:"successful_row_numbers"`
	FailedRowNumbers     []int            `json:"failed_row_numbers"`
	Errors               []ImportRowError `json:"errors"`
	StartedAt            time.Time        `json:"started_at"`
	CompletedAt          time.Time        `json:"completed_at"`
	DurationMS           int64            `json:"duration_ms"`
}
