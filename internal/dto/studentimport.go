package dto

// StudentImportRow is one externally-parsed spreadsheet row entering the
// import pipeline. Fields arrive as raw strings; normalization and
// validation happen in the pipeline's read-only phase.
type StudentImportRow struct {
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	AdmissionNumber      string `json:"admissionNumber"`
	ClassName            string `json:"className"`
	Gender               string `json:"gender"`
	DateOfBirth          string `json:"dateOfBirth"`
	PreviousSchool       string `json:"previousSchool"`
	GuardianName         string `json:"guardianName"`
	GuardianPhone        string `json:"guardianPhone"`
	GuardianEmail        string `json:"guardianEmail"`
	GuardianRelationship string `json:"guardianRelationship"`
}

// ImportStudentsRequest is the submitted batch.
type ImportStudentsRequest struct {
	AcademicYearID string             `json:"academicYearId" validate:"required"`
	Rows           []StudentImportRow `json:"rows" validate:"required,min=1"`
}
