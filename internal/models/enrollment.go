package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending   EnrollmentStatus = "PENDING"
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
	EnrollmentStatusRepeated  EnrollmentStatus = "REPEATED"
	EnrollmentStatusSuspended EnrollmentStatus = "SUSPENDED"
)

// enrollmentTransitions lists the legal target statuses per source status.
// Terminal rows are final; a new school year means a new Enrollment row.
// Suspension is the one non-terminal detour: a suspended enrollment can be
// reinstated to ACTIVE.
var enrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentStatusPending:   {EnrollmentStatusActive, EnrollmentStatusDropped},
	EnrollmentStatusActive:    {EnrollmentStatusCompleted, EnrollmentStatusDropped, EnrollmentStatusRepeated, EnrollmentStatusSuspended},
	EnrollmentStatusSuspended: {EnrollmentStatusActive},
}

// CanTransitionTo reports whether moving from s to target is legal.
func (s EnrollmentStatus) CanTransitionTo(target EnrollmentStatus) bool {
	for _, allowed := range enrollmentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s EnrollmentStatus) IsTerminal() bool {
	return len(enrollmentTransitions[s]) == 0
}

// Valid reports whether s is a known status value.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusActive, EnrollmentStatusCompleted,
		EnrollmentStatusDropped, EnrollmentStatusRepeated, EnrollmentStatusSuspended:
		return true
	}
	return false
}

// Enrollment links a student to one class within one academic year.
type Enrollment struct {
	ID                    string           `db:"id" json:"id"`
	SchoolID              string           `db:"school_id" json:"school_id"`
	StudentID             string           `db:"student_id" json:"student_id"`
	AcademicYearID        string           `db:"academic_year_id" json:"academic_year_id"`
	ClassID               string           `db:"class_id" json:"class_id"`
	Status                EnrollmentStatus `db:"status" json:"status"`
	EnrollmentDate        time.Time        `db:"enrollment_date" json:"enrollment_date"`
	CompletionDate        *time.Time       `db:"completion_date" json:"completion_date,omitempty"`
	PromotedToClassID     *string          `db:"promoted_to_class_id" json:"promoted_to_class_id,omitempty"`
	PreviousSchool        *string          `db:"previous_school" json:"previous_school,omitempty"`
	TransferCertificateNo *string          `db:"transfer_certificate_no" json:"transfer_certificate_no,omitempty"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student, class and year info.
type EnrollmentDetail struct {
	Enrollment
	StudentName      string `db:"student_name" json:"student_name"`
	AdmissionNumber  string `db:"admission_number" json:"admission_number"`
	ClassName        string `db:"class_name" json:"class_name"`
	ClassGrade       string `db:"class_grade" json:"class_grade"`
	AcademicYearName string `db:"academic_year_name" json:"academic_year_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID      string
	ClassID        string
	AcademicYearID string
	Status         EnrollmentStatus
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// EnrollmentStats aggregates enrollment counts per status for one year.
type EnrollmentStats struct {
	SchoolID       string                   `json:"school_id"`
	AcademicYearID string                   `json:"academic_year_id,omitempty"`
	Total          int                      `json:"total"`
	ByStatus       map[EnrollmentStatus]int `json:"by_status"`
}
