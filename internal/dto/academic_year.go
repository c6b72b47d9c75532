package dto

// CreateAcademicYearRequest defines the payload for opening a new school year.
// Dates use the 2006-01-02 layout.
type CreateAcademicYearRequest struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	IsCurrent bool   `json:"isCurrent"`
}
