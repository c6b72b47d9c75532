package models

import "time"

// Class represents a class section offered in one academic year.
// Grade holds the numeric grade level as text ("1".."12"); schools with
// lettered streams keep the stream in Name ("7A"), not in Grade.
type Class struct {
	ID             string    `db:"id" json:"id"`
	SchoolID       string    `db:"school_id" json:"school_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Name           string    `db:"name" json:"name"`
	Grade          string    `db:"grade" json:"grade"`
	ClassTeacherID *string   `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	AcademicYearID string
	Grade          string
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
