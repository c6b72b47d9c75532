package dto

// PromoteStudentRequest moves one student into a new academic year. When
// TargetClassID is empty the next class is auto-detected from the current
// class's numeric grade.
type PromoteStudentRequest struct {
	StudentID            string `json:"studentId" validate:"required"`
	TargetAcademicYearID string `json:"targetAcademicYearId" validate:"required"`
	TargetClassID        string `json:"targetClassId"`
}

// BulkPromoteRequest promotes many students with per-student failure
// isolation.
type BulkPromoteRequest struct {
	StudentIDs           []string `json:"studentIds" validate:"required,min=1,dive,required"`
	TargetAcademicYearID string   `json:"targetAcademicYearId" validate:"required"`
	TargetClassID        string   `json:"targetClassId"`
}
