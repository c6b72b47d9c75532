package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/enrollment-api/internal/dto"
	"github.com/campushub/enrollment-api/internal/models"
	"github.com/campushub/enrollment-api/pkg/config"
	"github.com/campushub/enrollment-api/pkg/export"
)

type userReaderStub struct {
	users map[string]*models.User
}

func (s *userReaderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *user
	return &copy, nil
}

type studentStoreStub struct {
	existing    map[string]struct{}
	claimedInTx map[string]struct{}
	created     []*models.Student
	failOn      string
	nextID      int
}

func newStudentStoreStub() *studentStoreStub {
	return &studentStoreStub{
		existing:    make(map[string]struct{}),
		claimedInTx: make(map[string]struct{}),
	}
}

func (s *studentStoreStub) ExistsByAdmissionNumber(ctx context.Context, exec sqlx.ExtContext, schoolID, admissionNumber string) (bool, error) {
	if _, ok := s.existing[admissionNumber]; ok {
		return true, nil
	}
	_, ok := s.claimedInTx[admissionNumber]
	return ok, nil
}

func (s *studentStoreStub) ListAdmissionNumbers(ctx context.Context, schoolID string) ([]string, error) {
	numbers := make([]string, 0, len(s.existing))
	for n := range s.existing {
		numbers = append(numbers, n)
	}
	return numbers, nil
}

func (s *studentStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	if s.failOn != "" && student.AdmissionNumber == s.failOn {
		return errors.New("unique constraint violated")
	}
	s.nextID++
	student.ID = fmt.Sprintf("stu-%d", s.nextID)
	copy := *student
	s.created = append(s.created, &copy)
	return nil
}

type classListerStub struct {
	classes []models.Class
}

func (s *classListerStub) ListByYear(ctx context.Context, schoolID, academicYearID string) ([]models.Class, error) {
	return s.classes, nil
}

type guardianLink struct {
	studentID   string
	guardianID  string
	isPrimary   bool
	isEmergency bool
}

type guardianStoreStub struct {
	created []*models.Guardian
	links   []guardianLink
	nextID  int
}

func (s *guardianStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, guardian *models.Guardian) error {
	s.nextID++
	guardian.ID = fmt.Sprintf("grd-%d", s.nextID)
	copy := *guardian
	s.created = append(s.created, &copy)
	return nil
}

func (s *guardianStoreStub) Link(ctx context.Context, exec sqlx.ExtContext, studentID, guardianID string, isPrimary, isEmergency bool) error {
	s.links = append(s.links, guardianLink{studentID: studentID, guardianID: guardianID, isPrimary: isPrimary, isEmergency: isEmergency})
	return nil
}

type importFixture struct {
	svc         *ImportService
	users       *userReaderStub
	students    *studentStoreStub
	enrollments *enrollmentRepoStub
	classes     *classListerStub
	years       *yearReaderStub
	guardians   *guardianStoreStub
	cache       *cacheStub
	audit       *auditStub
	mock        sqlmock.Sqlmock
}

func newImportFixture(t *testing.T) *importFixture {
	users := &userReaderStub{users: make(map[string]*models.User)}
	students := newStudentStoreStub()
	enrollments := newEnrollmentRepoStub()
	classes := &classListerStub{}
	years := &yearReaderStub{years: make(map[string]*models.AcademicYear)}
	guardians := &guardianStoreStub{}
	cache := newCacheStub()
	audit := &auditStub{}
	tx, mock := newTxProviderMock(t)

	schoolID := "school-1"
	users.users["admin-1"] = &models.User{ID: "admin-1", SchoolID: &schoolID, Role: models.RoleAdmin, Active: true}
	years.years["year-1"] = &models.AcademicYear{ID: "year-1", SchoolID: "school-1", Name: "2026/2027"}
	classes.classes = []models.Class{
		{ID: "class-1", SchoolID: "school-1", AcademicYearID: "year-1", Name: "Grade 1A", Grade: "1"},
	}

	cfg := config.ImportConfig{MaxRows: 100, TxAcquireTimeout: time.Second, TxTimeout: 5 * time.Second}
	svc := NewImportService(users, students, enrollments, classes, years, guardians, tx, cache, audit,
		NewMetricsService(), export.NewCSVExporter(), cfg, nil, nil)
	return &importFixture{
		svc:         svc,
		users:       users,
		students:    students,
		enrollments: enrollments,
		classes:     classes,
		years:       years,
		guardians:   guardians,
		cache:       cache,
		audit:       audit,
		mock:        mock,
	}
}

func validImportRow(admission string) dto.StudentImportRow {
	dob := time.Now().UTC().AddDate(-10, 0, 0).Format("2006-01-02")
	return dto.StudentImportRow{
		FirstName:       "Jane",
		LastName:        "Doe",
		AdmissionNumber: admission,
		ClassName:       "Grade 1A",
		Gender:          "F",
		DateOfBirth:     dob,
	}
}

func importErrorFor(result *models.ImportResult, row int, field string) *models.ImportRowError {
	for i := range result.Errors {
		if result.Errors[i].Row == row && result.Errors[i].Field == field {
			return &result.Errors[i]
		}
	}
	return nil
}

func TestImportServiceImportStudents(t *testing.T) {
	f := newImportFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	rowWithGuardian := validImportRow("ADM-002")
	rowWithGuardian.GuardianName = "Mary Doe"
	rowWithGuardian.GuardianPhone = "+1555000111"
	rowWithGuardian.GuardianRelationship = "mother"

	result, err := f.svc.ImportStudents(context.Background(), dto.ImportStudentsRequest{
		AcademicYearID: "year-1",
		Rows:           []dto.StudentImportRow{validImportRow("ADM-001"), rowWithGuardian},
	}, adminClaims("school-1"))
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalRows)
	require.Equal(t, 2, result.SuccessCount)
	require.Equal(t, 0, result.FailureCount)
	require.Equal(t, []int{1, 2}, result.SuccessfulRowNumbers)

	require.Len(t, f.students.created, 2)
	require.Equal(t, "female", f.students.created[0].Gender)
	require.Len(t, f.enrollments.enrollments, 2)
	for _, e := range f.enrollments.enrollments {
		assert.Equal(t, models.EnrollmentStatusActive, e.Status)
		assert.Equal(t, "year-1", e.AcademicYearID)
		assert.Equal(t, "class-1", e.ClassID)
	}

	// The first named guardian is both the primary and emergency contact.
	require.Len(t, f.guardians.created, 1)
	require.Equal(t, "mother", f.guardians.created[0].Relationship)
	require.Len(t, f.guardians.links, 1)
	require.True(t, f.guardians.links[0].isPrimary)
	require.True(t, f.guardians.links[0].isEmergency)

	require.Contains(t, f.cache.invalidated, "enrollment:stats:school-1:*")
	require.Len(t, f.audit.logs, 1)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestImportServiceBatchDuplicateAdmissionNumbers(t *testing.T) {
	f := newImportFixture(t)

	result, err := f.svc.ImportStudents(context.Background(), dto.ImportStudentsRequest{
		AcademicYearID: "year-1",
		Rows:           []dto.StudentImportRow{validImportRow("ADM-100"), validImportRow("ADM-100")},
	}, adminClaims("school-1"))
	require.NoError(t, err)
	require.Equal(t, 0, result.SuccessCount)
	require.Equal(t, 2, result.FailureCount)
	require.Equal(t, []int{1, 2}, result.FailedRowNumbers)

	// Mutual duplicates are reported on every involved row.
	for _, row := range []int{1, 2} {
		e := importErrorFor(result, row, "admissionNumber")
		require.NotNil(t, e, "row %d", row)
		require.Contains(t, e.Message, "duplicate admission number within batch")
	}
	require.Empty(t, f.students.created)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestImportServiceRowValidation(t *testing.T) {
	f := newImportFixture(t)
	f.students.existing["ADM-001"] = struct{}{}

	tooYoung := time.Now().UTC().AddDate(-1, 0, 0).Format("2006-01-02")
	rows := []dto.StudentImportRow{
		{LastName: "Doe", AdmissionNumber: "ADM-010", ClassName: "Grade 1A", Gender: "M"},
		func() dto.StudentImportRow { r := validImportRow("ADM-011"); r.Gender = "X"; return r }(),
		func() dto.StudentImportRow { r := validImportRow("ADM-012"); r.DateOfBirth = tooYoung; return r }(),
		func() dto.StudentImportRow { r := validImportRow("ADM-013"); r.ClassName = "Grade 9Z"; return r }(),
		func() dto.StudentImportRow { r := validImportRow("AB"); return r }(),
		func() dto.StudentImportRow { r := validImportRow("ADM-001"); return r }(),
	}

	result, err := f.svc.ImportStudents(context.Background(), dto.ImportStudentsRequest{
		AcademicYearID: "year-1",
		Rows:           rows,
	}, adminClaims("school-1"))
	require.NoError(t, err)
	require.Equal(t, 0, result.SuccessCount)
	require.Equal(t, 6, result.FailureCount)

	require.NotNil(t, importErrorFor(result, 1, "firstName"))
	require.NotNil(t, importErrorFor(result, 2, "gender"))
	dob := importErrorFor(result, 3, "dateOfBirth")
	require.NotNil(t, dob)
	require.Contains(t, dob.Message, "outside the accepted range")
	class := importErrorFor(result, 4, "className")
	require.NotNil(t, class)
	require.Contains(t, class.Message, "Grade 9Z")
	short := importErrorFor(result, 5, "admissionNumber")
	require.NotNil(t, short)
	require.Contains(t, short.Message, "at least 3 characters")
	taken := importErrorFor(result, 6, "admissionNumber")
	require.NotNil(t, taken)
	require.Contains(t, taken.Message, "already exists in school")

	require.Empty(t, f.students.created)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestImportServiceGuardianContactWithoutName(t *testing.T) {
	f := newImportFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	row := validImportRow("ADM-001")
	row.GuardianPhone = "+1555000111"

	result, err := f.svc.ImportStudents(context.Background(), dto.ImportStudentsRequest{
		AcademicYearID: "year-1",
		Rows:           []dto.StudentImportRow{row},
	}, adminClaims("school-1"))
	require.NoError(t, err)
	require.Equal(t, 1, result.SuccessCount)

	warning := importErrorFor(result, 1, "guardianName")
	require.NotNil(t, warning)
	require.Equal(t, models.ImportSeverityWarning, warning.Severity)
	require.Empty(t, f.guardians.created)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestImportServiceWriteFailureRollsBackBatch(t *testing.T) {
	f := newImportFixture(t)
	f.students.failOn = "ADM-002"
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	result, err := f.svc.ImportStudents(context.Background(), dto.ImportStudentsRequest{
		AcademicYearID: "year-1",
		Rows:           []dto.StudentImportRow{validImportRow("ADM-001"), validImportRow("ADM-002")},
	}, adminClaims("school-1"))
	require.NoError(t, err)
	require.Equal(t, 0, result.SuccessCount)
	require.Equal(t, 2, result.FailureCount)
	require.Equal(t, []int{1, 2}, result.FailedRowNumbers)

	batchErr := importErrorFor(result, 2, "batch")
	require.NotNil(t, batchErr)
	require.Contains(t, batchErr.Message, "all rows rolled back")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestImportServiceAdmissionNumberClaimedConcurrently(t *testing.T) {
	f := newImportFixture(t)
	// Validation passes, but the in-transaction re-check sees the number taken.
	f.students.claimedInTx["ADM-001"] = struct{}{}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	result, err := f.svc.ImportStudents(context.Background(), dto.ImportStudentsRequest{
		AcademicYearID: "year-1",
		Rows:           []dto.StudentImportRow{validImportRow("ADM-001")},
	}, adminClaims("school-1"))
	require.NoError(t, err)
	require.Equal(t, 0, result.SuccessCount)
	require.Equal(t, 1, result.FailureCount)
	batchErr := importErrorFor(result, 1, "batch")
	require.NotNil(t, batchErr)
	require.Contains(t, batchErr.Message, "already exists")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestImportServiceTeacherForbidden(t *testing.T) {
	f := newImportFixture(t)
	schoolID := "school-1"
	f.users.users["teacher-1"] = &models.User{ID: "teacher-1", SchoolID: &schoolID, Role: models.RoleTeacher, Active: true}
	claims := &models.JWTClaims{UserID: "teacher-1", SchoolID: &schoolID, Role: models.RoleTeacher}

	_, err := f.svc.ImportStudents(context.Background(), dto.ImportStudentsRequest{
		AcademicYearID: "year-1",
		Rows:           []dto.StudentImportRow{validImportRow("ADM-001")},
	}, claims)
	requireAppError(t, err, http.StatusForbidden, "role cannot import students")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestImportServiceUnknownAcademicYear(t *testing.T) {
	f := newImportFixture(t)

	_, err := f.svc.ImportStudents(context.Background(), dto.ImportStudentsRequest{
		AcademicYearID: "year-404",
		Rows:           []dto.StudentImportRow{validImportRow("ADM-001")},
	}, adminClaims("school-1"))
	requireAppError(t, err, http.StatusNotFound, "academic year not found")
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestImportServiceValidateOnly(t *testing.T) {
	f := newImportFixture(t)

	result, err := f.svc.ValidateStudentImport(context.Background(), dto.ImportStudentsRequest{
		AcademicYearID: "year-1",
		Rows:           []dto.StudentImportRow{validImportRow("ADM-001"), validImportRow("ADM-002")},
	}, adminClaims("school-1"))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, result.SuccessfulRowNumbers)
	require.Equal(t, 0, result.FailureCount)
	require.Empty(t, f.students.created)
	require.Empty(t, f.enrollments.enrollments)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestImportServiceErrorReportCSV(t *testing.T) {
	f := newImportFixture(t)
	result := &models.ImportResult{
		Errors: []models.ImportRowError{
			{Row: 3, Field: "gender", Message: `invalid gender "X"`, Severity: models.ImportSeverityError},
		},
	}

	report, err := f.svc.ErrorReportCSV(result)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(report)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "row,field,severity,message", lines[0])
	require.Contains(t, lines[1], "gender")
	require.Contains(t, lines[1], "error")
}

func TestNormalizeGender(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"M", "male", false},
		{"male", "male", false},
		{" FEMALE ", "female", false},
		{"f", "female", false},
		{"", "", true},
		{"X", "", true},
	}
	for _, tc := range cases {
		got, err := normalizeGender(tc.raw)
		if tc.wantErr {
			require.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		require.Equal(t, tc.want, got)
	}
}

func TestAgeInYears(t *testing.T) {
	now := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 10, ageInYears(time.Date(2016, 8, 30, 0, 0, 0, 0, time.UTC), now))
	require.Equal(t, 9, ageInYears(time.Date(2016, 8, 31, 0, 0, 0, 0, time.UTC), now))
	require.Equal(t, 0, ageInYears(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), now))
}
