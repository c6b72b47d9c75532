package models

// PromotionFailure records why one student could not be promoted.
type PromotionFailure struct {
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

// PromotionSuccess pairs a promoted student with the enrollment opened for them.
type PromotionSuccess struct {
	StudentID  string            `json:"student_id"`
	Enrollment *EnrollmentDetail `json:"enrollment"`
}

// BulkPromotionResult reports per-student outcomes in input order.
// A failed student never rolls back another student's promotion.
type BulkPromotionResult struct {
	Successful []PromotionSuccess `json:"successful"`
	Failed     []PromotionFailure `json:"failed"`
}
