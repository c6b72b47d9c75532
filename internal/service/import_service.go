package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushub/enrollment-api/internal/dto"
	"github.com/campushub/enrollment-api/internal/models"
	"github.com/campushub/enrollment-api/pkg/config"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
	"github.com/campushub/enrollment-api/pkg/export"
)

// Accepted age range for imported students, inclusive lower bound and
// exclusive upper bound.
const (
	importMinAge = 2
	importMaxAge = 25
)

type importUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type importStudentStore interface {
	ExistsByAdmissionNumber(ctx context.Context, exec sqlx.ExtContext, schoolID, admissionNumber string) (bool, error)
	ListAdmissionNumbers(ctx context.Context, schoolID string) ([]string, error)
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
}

type importEnrollmentCreator interface {
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
}

type importClassLister interface {
	ListByYear(ctx context.Context, schoolID, academicYearID string) ([]models.Class, error)
}

type importYearReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.AcademicYear, error)
}

type guardianStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, guardian *models.Guardian) error
	Link(ctx context.Context, exec sqlx.ExtContext, studentID, guardianID string, isPrimary, isEmergency bool) error
}

type errorReportRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// resolvedImportRow is a validated row ready for the write phase.
type resolvedImportRow struct {
	rowNum   int
	student  *models.Student
	classID  string
	guardian *models.Guardian
}

// ImportService performs bulk student onboarding in two phases: a read-only
// validation pass over the whole batch, then a single all-or-nothing write
// transaction. No partial imports ever commit.
type ImportService struct {
	users       importUserReader
	students    importStudentStore
	enrollments importEnrollmentCreator
	classes     importClassLister
	years       importYearReader
	guardians   guardianStore
	tx          txProvider
	cache       statsCache
	audit       auditLogger
	metrics     *MetricsService
	csv         errorReportRenderer
	cfg         config.ImportConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewImportService constructs ImportService.
func NewImportService(users importUserReader, students importStudentStore, enrollments importEnrollmentCreator, classes importClassLister, years importYearReader, guardians guardianStore, tx txProvider, cache statsCache, audit auditLogger, metrics *MetricsService, csv errorReportRenderer, cfg config.ImportConfig, validate *validator.Validate, logger *zap.Logger) *ImportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		users:       users,
		students:    students,
		enrollments: enrollments,
		classes:     classes,
		years:       years,
		guardians:   guardians,
		tx:          tx,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		csv:         csv,
		cfg:         cfg,
		validator:   validate,
		logger:      logger,
	}
}

// ImportStudents validates and writes a batch of students for the importing
// admin's school. When any row fails validation the write phase never starts
// and the result reports every failing row. When the write phase fails for
// any reason the whole batch rolls back and the result reports zero imports.
func (s *ImportService) ImportStudents(ctx context.Context, req dto.ImportStudentsRequest, claims *models.JWTClaims) (*models.ImportResult, error) {
	started := time.Now().UTC()

	schoolID, err := s.resolveImportSchool(ctx, claims)
	if err != nil {
		return nil, err
	}
	if err := s.checkBatch(ctx, schoolID, req); err != nil {
		return nil, err
	}

	resolved, result, err := s.validateBatch(ctx, schoolID, req)
	if err != nil {
		return nil, err
	}
	if result.FailureCount > 0 {
		finalizeImportResult(result, started)
		s.metrics.RecordImportRows(0, result.FailureCount)
		return result, nil
	}

	s.writeBatch(ctx, schoolID, req.AcademicYearID, resolved, result)
	finalizeImportResult(result, started)
	s.metrics.RecordImportRows(result.SuccessCount, result.FailureCount)
	emitAudit(ctx, s.audit, s.logger, claims, schoolID, models.AuditActionStudentImport, "student_import", req.AcademicYearID,
		fmt.Sprintf("%d of %d rows imported", result.SuccessCount, result.TotalRows))
	return result, nil
}

// ValidateStudentImport runs the validation phase only. Rows that would
// import are listed as successful row numbers; nothing is written.
func (s *ImportService) ValidateStudentImport(ctx context.Context, req dto.ImportStudentsRequest, claims *models.JWTClaims) (*models.ImportResult, error) {
	started := time.Now().UTC()

	schoolID, err := s.resolveImportSchool(ctx, claims)
	if err != nil {
		return nil, err
	}
	if err := s.checkBatch(ctx, schoolID, req); err != nil {
		return nil, err
	}

	resolved, result, err := s.validateBatch(ctx, schoolID, req)
	if err != nil {
		return nil, err
	}
	for _, r := range resolved {
		result.SuccessfulRowNumbers = append(result.SuccessfulRowNumbers, r.rowNum)
	}
	finalizeImportResult(result, started)
	return result, nil
}

// ErrorReportCSV renders the row errors of an import result as CSV.
func (s *ImportService) ErrorReportCSV(result *models.ImportResult) ([]byte, error) {
	data := export.Dataset{
		Headers: []string{"row", "field", "severity", "message"},
		Rows:    make([]map[string]string, 0, len(result.Errors)),
	}
	for _, e := range result.Errors {
		data.Rows = append(data.Rows, map[string]string{
			"row":      strconv.Itoa(e.Row),
			"field":    e.Field,
			"severity": e.Severity,
			"message":  e.Message,
		})
	}
	report, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render error report")
	}
	return report, nil
}

// resolveImportSchool identifies the school the import targets from the
// importing user's record.
func (s *ImportService) resolveImportSchool(ctx context.Context, claims *models.JWTClaims) (string, error) {
	if claims == nil || claims.UserID == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "missing authentication")
	}
	admin, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "importing user not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load importing user")
	}
	if !admin.Active {
		return "", appErrors.Clone(appErrors.ErrForbidden, "account is inactive")
	}
	if admin.Role != models.RoleAdmin && admin.Role != models.RoleSuperAdmin {
		return "", appErrors.Clone(appErrors.ErrForbidden, "role cannot import students")
	}
	if admin.SchoolID == nil || *admin.SchoolID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "importing user is not attached to a school")
	}
	return *admin.SchoolID, nil
}

func (s *ImportService) checkBatch(ctx context.Context, schoolID string, req dto.ImportStudentsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload")
	}
	if len(req.Rows) > s.cfg.MaxRows {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import exceeds maximum of %d rows", s.cfg.MaxRows))
	}
	if _, err := s.years.FindByID(ctx, nil, schoolID, req.AcademicYearID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch academic year")
	}
	return nil
}

// validateBatch is the read-only phase. The whole batch is validated before
// any verdict so a single response carries every row's problems.
func (s *ImportService) validateBatch(ctx context.Context, schoolID string, req dto.ImportStudentsRequest) ([]resolvedImportRow, *models.ImportResult, error) {
	classes, err := s.classes.ListByYear(ctx, schoolID, req.AcademicYearID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	classByName := make(map[string]models.Class, len(classes))
	for _, c := range classes {
		classByName[strings.ToLower(c.Name)] = c
	}

	numbers, err := s.students.ListAdmissionNumbers(ctx, schoolID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission numbers")
	}
	existing := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		existing[n] = struct{}{}
	}

	// Count admission numbers inside the batch up front so that mutual
	// duplicates are reported on every involved row.
	batchCounts := make(map[string]int, len(req.Rows))
	for _, row := range req.Rows {
		if n := strings.TrimSpace(row.AdmissionNumber); n != "" {
			batchCounts[n]++
		}
	}

	result := &models.ImportResult{
		TotalRows:            len(req.Rows),
		SuccessfulRowNumbers: []int{},
		FailedRowNumbers:     []int{},
		Errors:               []models.ImportRowError{},
	}
	resolved := make([]resolvedImportRow, 0, len(req.Rows))
	for i, row := range req.Rows {
		rowNum := i + 1
		r, rowErrs := validateImportRow(schoolID, rowNum, row, classByName, existing, batchCounts)
		result.Errors = append(result.Errors, rowErrs...)
		if r == nil {
			result.FailedRowNumbers = append(result.FailedRowNumbers, rowNum)
			continue
		}
		resolved = append(resolved, *r)
	}
	result.FailureCount = len(result.FailedRowNumbers)
	return resolved, result, nil
}

// validateImportRow checks one row. It returns nil when the row carries at
// least one error-severity problem; warnings alone do not fail a row.
func validateImportRow(schoolID string, rowNum int, row dto.StudentImportRow, classByName map[string]models.Class, existing map[string]struct{}, batchCounts map[string]int) (*resolvedImportRow, []models.ImportRowError) {
	var errs []models.ImportRowError
	fail := func(field, message string) {
		errs = append(errs, models.ImportRowError{Row: rowNum, Field: field, Message: message, Severity: models.ImportSeverityError})
	}
	warn := func(field, message string) {
		errs = append(errs, models.ImportRowError{Row: rowNum, Field: field, Message: message, Severity: models.ImportSeverityWarning})
	}

	firstName := strings.TrimSpace(row.FirstName)
	if firstName == "" {
		fail("firstName", "first name is required")
	}
	lastName := strings.TrimSpace(row.LastName)
	if lastName == "" {
		fail("lastName", "last name is required")
	}

	admission := strings.TrimSpace(row.AdmissionNumber)
	switch {
	case admission == "":
		fail("admissionNumber", "admission number is required")
	case len(admission) < 3:
		fail("admissionNumber", "admission number must be at least 3 characters")
	default:
		if _, ok := existing[admission]; ok {
			fail("admissionNumber", "admission number already exists in school")
		}
		if batchCounts[admission] > 1 {
			fail("admissionNumber", "duplicate admission number within batch")
		}
	}

	var class models.Class
	className := strings.TrimSpace(row.ClassName)
	if className == "" {
		fail("className", "class name is required")
	} else if c, ok := classByName[strings.ToLower(className)]; ok {
		class = c
	} else {
		fail("className", fmt.Sprintf("unknown class %q", className))
	}

	gender, err := normalizeGender(row.Gender)
	if err != nil {
		fail("gender", err.Error())
	}

	var dateOfBirth *time.Time
	if raw := strings.TrimSpace(row.DateOfBirth); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fail("dateOfBirth", "invalid date of birth, expected YYYY-MM-DD")
		} else if age := ageInYears(parsed, time.Now().UTC()); age < importMinAge || age >= importMaxAge {
			fail("dateOfBirth", fmt.Sprintf("age %d is outside the accepted range", age))
		} else {
			dateOfBirth = &parsed
		}
	}

	var guardian *models.Guardian
	guardianName := strings.TrimSpace(row.GuardianName)
	if guardianName != "" {
		relationship := strings.TrimSpace(row.GuardianRelationship)
		if relationship == "" {
			relationship = "guardian"
		}
		guardian = &models.Guardian{
			SchoolID:     schoolID,
			FullName:     guardianName,
			Phone:        strings.TrimSpace(row.GuardianPhone),
			Email:        strings.TrimSpace(row.GuardianEmail),
			Relationship: relationship,
		}
	} else if strings.TrimSpace(row.GuardianPhone) != "" || strings.TrimSpace(row.GuardianEmail) != "" {
		warn("guardianName", "guardian contact provided without a name, guardian skipped")
	}

	for _, e := range errs {
		if e.Severity == models.ImportSeverityError {
			return nil, errs
		}
	}

	var previousSchool *string
	if p := strings.TrimSpace(row.PreviousSchool); p != "" {
		previousSchool = &p
	}
	student := &models.Student{
		SchoolID:        schoolID,
		AdmissionNumber: admission,
		FirstName:       firstName,
		LastName:        lastName,
		Gender:          gender,
		DateOfBirth:     dateOfBirth,
		PreviousSchool:  previousSchool,
		Active:          true,
	}
	return &resolvedImportRow{rowNum: rowNum, student: student, classID: class.ID, guardian: guardian}, errs
}

// writeBatch is the write phase. It opens one serializable transaction under
// the configured acquire and execution deadlines and writes every row; the
// first failure rolls back the whole batch.
func (s *ImportService) writeBatch(ctx context.Context, schoolID, academicYearID string, rows []resolvedImportRow, result *models.ImportResult) {
	acquireCtx, cancelAcquire := context.WithTimeout(ctx, s.cfg.TxAcquireTimeout)
	defer cancelAcquire()
	tx, err := s.tx.BeginTxx(acquireCtx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		failAllImportRows(result, rows, 0, fmt.Sprintf("failed to acquire import transaction: %v; no rows imported", err))
		return
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	writeCtx, cancelWrite := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancelWrite()

	for _, r := range rows {
		if err := s.writeRow(writeCtx, tx, schoolID, academicYearID, r); err != nil {
			failAllImportRows(result, rows, r.rowNum, fmt.Sprintf("%v; all rows rolled back", err))
			return
		}
	}
	if err := tx.Commit(); err != nil {
		failAllImportRows(result, rows, 0, fmt.Sprintf("failed to commit import transaction: %v; no rows imported", err))
		return
	}
	committed = true

	for _, r := range rows {
		result.SuccessfulRowNumbers = append(result.SuccessfulRowNumbers, r.rowNum)
	}
	result.SuccessCount = len(rows)
	invalidateStatsCache(ctx, s.cache, s.logger, schoolID)
}

func (s *ImportService) writeRow(ctx context.Context, tx *sqlx.Tx, schoolID, academicYearID string, r resolvedImportRow) error {
	// Re-check inside the transaction: another writer may have claimed the
	// admission number since the validation phase.
	exists, err := s.students.ExistsByAdmissionNumber(ctx, tx, schoolID, r.student.AdmissionNumber)
	if err != nil {
		return fmt.Errorf("verify admission number: %w", err)
	}
	if exists {
		return fmt.Errorf("admission number %s already exists", r.student.AdmissionNumber)
	}
	if err := s.students.Create(ctx, tx, r.student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	enrollment := &models.Enrollment{
		SchoolID:       schoolID,
		StudentID:      r.student.ID,
		AcademicYearID: academicYearID,
		ClassID:        r.classID,
		Status:         models.EnrollmentStatusActive,
	}
	if err := s.enrollments.Create(ctx, tx, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	if r.guardian != nil {
		if err := s.guardians.Create(ctx, tx, r.guardian); err != nil {
			return fmt.Errorf("create guardian: %w", err)
		}
		if err := s.guardians.Link(ctx, tx, r.student.ID, r.guardian.ID, true, true); err != nil {
			return fmt.Errorf("link guardian: %w", err)
		}
	}
	return nil
}

// failAllImportRows marks the entire batch failed. rowNum is zero when the
// failure is not attributable to a single row.
func failAllImportRows(result *models.ImportResult, rows []resolvedImportRow, rowNum int, message string) {
	for _, r := range rows {
		result.FailedRowNumbers = append(result.FailedRowNumbers, r.rowNum)
	}
	result.FailureCount = len(result.FailedRowNumbers)
	result.SuccessCount = 0
	result.Errors = append(result.Errors, models.ImportRowError{Row: rowNum, Field: "batch", Message: message, Severity: models.ImportSeverityError})
}

func finalizeImportResult(result *models.ImportResult, started time.Time) {
	result.StartedAt = started
	result.CompletedAt = time.Now().UTC()
	result.DurationMS = result.CompletedAt.Sub(started).Milliseconds()
}

func normalizeGender(raw string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "M", "MALE":
		return "male", nil
	case "F", "FEMALE":
		return "female", nil
	case "":
		return "", errors.New("gender is required")
	default:
		return "", fmt.Errorf("invalid gender %q", raw)
	}
}

// ageInYears computes whole years between dob and now.
func ageInYears(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if dob.AddDate(years, 0, 0).After(now) {
		years--
	}
	return years
}
