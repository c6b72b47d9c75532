package dto

// CreateClassRequest defines the payload for opening a class section within
// an academic year. Grade carries the numeric level as text; non-numeric
// labels are allowed but opt the class out of promotion auto-detection.
type CreateClassRequest struct {
	AcademicYearID string  `json:"academicYearId" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Grade          string  `json:"grade" validate:"required"`
	ClassTeacherID *string `json:"classTeacherId,omitempty"`
}
