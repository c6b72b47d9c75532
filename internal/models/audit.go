package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin                = "LOGIN"
	AuditActionEnrollmentCreate     = "ENROLLMENT_CREATE"
	AuditActionEnrollmentTransition = "ENROLLMENT_TRANSITION"
	AuditActionPromotion            = "PROMOTION"
	AuditActionBulkPromotion        = "BULK_PROMOTION"
	AuditActionStudentImport        = "STUDENT_IMPORT"
	AuditActionYearCreate           = "ACADEMIC_YEAR_CREATE"
	AuditActionYearSetCurrent       = "ACADEMIC_YEAR_SET_CURRENT"
	AuditActionClassCreate          = "CLASS_CREATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	SchoolID   *string   `db:"school_id" json:"school_id,omitempty"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     string    `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
