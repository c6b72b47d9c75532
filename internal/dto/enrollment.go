package dto

import "time"

// CreateEnrollmentRequest defines the payload for enrolling a student.
// Status may be left empty (defaults to ACTIVE) or set to PENDING for
// enrollments awaiting confirmation.
type CreateEnrollmentRequest struct {
	StudentID             string     `json:"studentId" validate:"required"`
	ClassID               string     `json:"classId" validate:"required"`
	AcademicYearID        string     `json:"academicYearId" validate:"required"`
	Status                string     `json:"status" validate:"omitempty,oneof=PENDING ACTIVE"`
	EnrollmentDate        *time.Time `json:"enrollmentDate,omitempty"`
	PreviousSchool        *string    `json:"previousSchool,omitempty"`
	TransferCertificateNo *string    `json:"transferCertificateNo,omitempty"`
}
