package models

import "time"

// Student represents a learner registered with a school.
type Student struct {
	ID              string     `db:"id" json:"id"`
	SchoolID        string     `db:"school_id" json:"school_id"`
	AdmissionNumber string     `db:"admission_number" json:"admission_number"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	Gender          string     `db:"gender" json:"gender"`
	DateOfBirth     *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	PreviousSchool  *string    `db:"previous_school" json:"previous_school,omitempty"`
	Active          bool       `db:"active" json:"active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins the student's name parts for display.
func (s Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with guardian context.
type StudentDetail struct {
	Student
	Guardians []GuardianLink `json:"guardians,omitempty"`
}
