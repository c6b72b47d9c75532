package service

import (
	"context"
	"net/http"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campushub/enrollment-api/internal/dto"
	"github.com/campushub/enrollment-api/internal/models"
)

type promotionFixture struct {
	svc      *PromotionService
	repo     *enrollmentRepoStub
	students *studentReaderStub
	classes  *classReaderStub
	years    *yearReaderStub
	cache    *cacheStub
	audit    *auditStub
	mock     sqlmock.Sqlmock
}

func newPromotionFixture(t *testing.T) *promotionFixture {
	repo := newEnrollmentRepoStub()
	students := &studentReaderStub{students: make(map[string]*models.Student)}
	classes := &classReaderStub{classes: make(map[string]*models.Class)}
	years := &yearReaderStub{years: make(map[string]*models.AcademicYear)}
	cache := newCacheStub()
	audit := &auditStub{}
	tx, mock := newTxProviderMock(t)

	svc := NewPromotionService(repo, classes, NewLookups(students, classes, years), tx, cache, audit,
		NewMetricsService(), nil, nil)
	return &promotionFixture{
		svc:      svc,
		repo:     repo,
		students: students,
		classes:  classes,
		years:    years,
		cache:    cache,
		audit:    audit,
		mock:     mock,
	}
}

// seedPromotion registers year-1 with class-5 (grade 5) and year-2 with
// class-6 (grade 6), plus an ACTIVE grade 5 enrollment for stu-1.
func (f *promotionFixture) seedPromotion() {
	f.students.students["stu-1"] = &models.Student{ID: "stu-1", SchoolID: "school-1", FirstName: "Jane", LastName: "Doe", Active: true}
	f.years.years["year-1"] = &models.AcademicYear{ID: "year-1", SchoolID: "school-1", Name: "2025/2026"}
	f.years.years["year-2"] = &models.AcademicYear{ID: "year-2", SchoolID: "school-1", Name: "2026/2027"}
	f.classes.classes["class-5"] = &models.Class{ID: "class-5", SchoolID: "school-1", AcademicYearID: "year-1", Name: "Grade 5A", Grade: "5"}
	f.classes.classes["class-6"] = &models.Class{ID: "class-6", SchoolID: "school-1", AcademicYearID: "year-2", Name: "Grade 6A", Grade: "6"}
	f.repo.put(&models.Enrollment{ID: "enr-1", SchoolID: "school-1", StudentID: "stu-1", AcademicYearID: "year-1", ClassID: "class-5", Status: models.EnrollmentStatusActive})
}

func TestPromotionServicePromoteAutoDetect(t *testing.T) {
	f := newPromotionFixture(t)
	f.seedPromotion()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	detail, err := f.svc.Promote(context.Background(), "school-1", dto.PromoteStudentRequest{
		StudentID:            "stu-1",
		TargetAcademicYearID: "year-2",
	}, adminClaims("school-1"))
	require.NoError(t, err)
	require.Equal(t, "class-6", detail.ClassID)
	require.Equal(t, models.EnrollmentStatusActive, detail.Status)

	old := f.repo.enrollments["enr-1"]
	require.Equal(t, models.EnrollmentStatusCompleted, old.Status)
	require.NotNil(t, old.CompletionDate)
	require.NotNil(t, old.PromotedToClassID)
	require.Equal(t, "class-6", *old.PromotedToClassID)
	require.Len(t, f.audit.logs, 1)
	require.Contains(t, f.cache.invalidated, "enrollment:stats:school-1:*")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPromotionServicePromoteExplicitTargetClass(t *testing.T) {
	f := newPromotionFixture(t)
	f.seedPromotion()
	f.classes.classes["class-6b"] = &models.Class{ID: "class-6b", SchoolID: "school-1", AcademicYearID: "year-2", Name: "Grade 6B", Grade: "6"}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	detail, err := f.svc.Promote(context.Background(), "school-1", dto.PromoteStudentRequest{
		StudentID:            "stu-1",
		TargetAcademicYearID: "year-2",
		TargetClassID:        "class-6b",
	}, adminClaims("school-1"))
	require.NoError(t, err)
	require.Equal(t, "class-6b", detail.ClassID)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPromotionServicePromoteExplicitClassWrongYear(t *testing.T) {
	f := newPromotionFixture(t)
	f.seedPromotion()

	_, err := f.svc.Promote(context.Background(), "school-1", dto.PromoteStudentRequest{
		StudentID:            "stu-1",
		TargetAcademicYearID: "year-2",
		TargetClassID:        "class-5",
	}, adminClaims("school-1"))
	requireAppError(t, err, http.StatusBadRequest, "target class does not belong to target academic year")
	require.Equal(t, models.EnrollmentStatusActive, f.repo.enrollments["enr-1"].Status)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPromotionServicePromoteNoActiveEnrollment(t *testing.T) {
	f := newPromotionFixture(t)
	f.seedPromotion()
	f.repo.enrollments["enr-1"].Status = models.EnrollmentStatusCompleted

	_, err := f.svc.Promote(context.Background(), "school-1", dto.PromoteStudentRequest{
		StudentID:            "stu-1",
		TargetAcademicYearID: "year-2",
	}, adminClaims("school-1"))
	requireAppError(t, err, http.StatusNotFound, "no active enrollment")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPromotionServicePromoteMissingNextGradeClass(t *testing.T) {
	f := newPromotionFixture(t)
	f.seedPromotion()
	delete(f.classes.classes, "class-6")

	_, err := f.svc.Promote(context.Background(), "school-1", dto.PromoteStudentRequest{
		StudentID:            "stu-1",
		TargetAcademicYearID: "year-2",
	}, adminClaims("school-1"))
	requireAppError(t, err, http.StatusNotFound, "next grade class not found")

	// The current enrollment stays ACTIVE; nothing was written.
	require.Equal(t, models.EnrollmentStatusActive, f.repo.enrollments["enr-1"].Status)
	require.Len(t, f.repo.enrollments, 1)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPromotionServicePromoteNonNumericGrade(t *testing.T) {
	f := newPromotionFixture(t)
	f.seedPromotion()
	f.classes.classes["class-5"].Grade = "FORM_3"

	_, err := f.svc.Promote(context.Background(), "school-1", dto.PromoteStudentRequest{
		StudentID:            "stu-1",
		TargetAcademicYearID: "year-2",
	}, adminClaims("school-1"))
	requireAppError(t, err, http.StatusBadRequest, "invalid current grade")
	require.Equal(t, models.EnrollmentStatusActive, f.repo.enrollments["enr-1"].Status)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPromotionServicePromoteAlreadyEnrolledTargetYear(t *testing.T) {
	f := newPromotionFixture(t)
	f.seedPromotion()
	f.repo.put(&models.Enrollment{ID: "enr-2", SchoolID: "school-1", StudentID: "stu-1", AcademicYearID: "year-2", ClassID: "class-6", Status: models.EnrollmentStatusPending})

	_, err := f.svc.Promote(context.Background(), "school-1", dto.PromoteStudentRequest{
		StudentID:            "stu-1",
		TargetAcademicYearID: "year-2",
	}, adminClaims("school-1"))
	requireAppError(t, err, http.StatusConflict, "already enrolled for target academic year")
	require.Equal(t, models.EnrollmentStatusActive, f.repo.enrollments["enr-1"].Status)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPromotionServicePromoteTeacherForbidden(t *testing.T) {
	f := newPromotionFixture(t)
	f.seedPromotion()
	schoolID := "school-1"
	claims := &models.JWTClaims{UserID: "teacher-1", SchoolID: &schoolID, Role: models.RoleTeacher}

	_, err := f.svc.Promote(context.Background(), "school-1", dto.PromoteStudentRequest{
		StudentID:            "stu-1",
		TargetAcademicYearID: "year-2",
	}, claims)
	requireAppError(t, err, http.StatusForbidden, "")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPromotionServiceBulkPromoteIsolation(t *testing.T) {
	f := newPromotionFixture(t)
	f.seedPromotion()
	// stu-2 has no active enrollment, so its promotion fails alone.
	f.students.students["stu-2"] = &models.Student{ID: "stu-2", SchoolID: "school-1", FirstName: "John", LastName: "Roe", Active: true}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.BulkPromote(context.Background(), "school-1", dto.BulkPromoteRequest{
		StudentIDs:           []string{"stu-2", "stu-1"},
		TargetAcademicYearID: "year-2",
	}, adminClaims("school-1"))
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	require.Equal(t, "stu-2", result.Failed[0].StudentID)
	require.Contains(t, result.Failed[0].Error, "no active enrollment")
	require.Len(t, result.Successful, 1)
	require.Equal(t, "stu-1", result.Successful[0].StudentID)
	require.Equal(t, models.EnrollmentStatusCompleted, f.repo.enrollments["enr-1"].Status)
	require.Len(t, f.audit.logs, 1)
	require.NoError(t, f.mock.ExpectationsWereMet())
}
