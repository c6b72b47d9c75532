package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campushub/enrollment-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func enrollmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "school_id", "student_id", "academic_year_id", "class_id", "status",
		"enrollment_date", "completion_date", "promoted_to_class_id", "previous_school",
		"transfer_certificate_no", "created_at", "updated_at",
	})
}

func TestEnrollmentRepositoryFindActiveByStudent(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	rows := enrollmentRows().
		AddRow("enr-1", "school-1", "stu-1", "year-1", "class-1", models.EnrollmentStatusActive,
			now, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(`WHERE e\.student_id = \$1 AND e\.school_id = \$2 AND e\.status = \$3`).
		WithArgs("stu-1", "school-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	enrollment, err := repo.FindActiveByStudent(context.Background(), nil, "school-1", "stu-1")
	require.NoError(t, err)
	require.Equal(t, "enr-1", enrollment.ID)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsForYear(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	query := regexp.QuoteMeta(`SELECT 1 FROM enrollments WHERE student_id = $1 AND academic_year_id = $2 AND school_id = $3 LIMIT 1`)
	mock.ExpectQuery(query).
		WithArgs("stu-1", "year-1", "school-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsForYear(context.Background(), nil, "school-1", "stu-1", "year-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(query).
		WithArgs("stu-2", "year-1", "school-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsForYear(context.Background(), nil, "school-1", "stu-2", "year-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`INSERT INTO enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{
		SchoolID:       "school-1",
		StudentID:      "stu-1",
		AcademicYearID: "year-1",
		ClassID:        "class-1",
	}
	err := repo.Create(context.Background(), nil, enrollment)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.False(t, enrollment.EnrollmentDate.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatusFrom(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	query := `UPDATE enrollments SET status = \$4, completion_date = \$5, updated_at = \$6`
	completed := time.Now().UTC()
	mock.ExpectExec(query).
		WithArgs("enr-1", "school-1", models.EnrollmentStatusActive, models.EnrollmentStatusCompleted, completed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateStatusFrom(context.Background(), nil, "school-1", "enr-1",
		models.EnrollmentStatusActive, models.EnrollmentStatusCompleted, &completed)
	require.NoError(t, err)
	require.True(t, updated)

	// A concurrent transition already moved the row off the expected status.
	mock.ExpectExec(query).
		WithArgs("enr-1", "school-1", models.EnrollmentStatusActive, models.EnrollmentStatusCompleted, completed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err = repo.UpdateStatusFrom(context.Background(), nil, "school-1", "enr-1",
		models.EnrollmentStatusActive, models.EnrollmentStatusCompleted, &completed)
	require.NoError(t, err)
	require.False(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkPromoted(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	completedAt := time.Now().UTC()
	mock.ExpectExec(`UPDATE enrollments SET status = \$4, completion_date = \$5, promoted_to_class_id = \$6`).
		WithArgs("enr-1", "school-1", models.EnrollmentStatusActive, models.EnrollmentStatusCompleted, completedAt, "class-next").
		WillReturnResult(sqlmock.NewResult(0, 1))

	promoted, err := repo.MarkPromoted(context.Background(), nil, "school-1", "enr-1", "class-next", completedAt)
	require.NoError(t, err)
	require.True(t, promoted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByStatus(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow(models.EnrollmentStatusActive, 12).
		AddRow(models.EnrollmentStatusCompleted, 30)
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS total FROM enrollments WHERE school_id = \$1 AND academic_year_id = \$2`).
		WithArgs("school-1", "year-1").
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background(), "school-1", "year-1")
	require.NoError(t, err)
	require.Equal(t, 12, counts[models.EnrollmentStatusActive])
	require.Equal(t, 30, counts[models.EnrollmentStatusCompleted])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryList(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "school_id", "student_id", "academic_year_id", "class_id", "status",
		"enrollment_date", "completion_date", "promoted_to_class_id", "previous_school",
		"transfer_certificate_no", "created_at", "updated_at",
		"student_name", "admission_number", "class_name", "class_grade", "academic_year_name",
	}).AddRow("enr-1", "school-1", "stu-1", "year-1", "class-1", models.EnrollmentStatusActive,
		now, nil, nil, nil, nil, now, now,
		"Jane Doe", "ADM-001", "Grade 5A", "5", "2026/2027")

	mock.ExpectQuery(`(?s)SELECT e\.id,.*FROM enrollments e`).
		WithArgs("school-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("school-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	filter := models.EnrollmentFilter{Status: models.EnrollmentStatusActive, Page: 1, PageSize: 20}
	enrollments, total, err := repo.List(context.Background(), "school-1", filter)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, enrollments, 1)
	require.Equal(t, "Jane Doe", enrollments[0].StudentName)
	require.Equal(t, "Grade 5A", enrollments[0].ClassName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListClampsPageSize(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	empty := sqlmock.NewRows([]string{
		"id", "school_id", "student_id", "academic_year_id", "class_id", "status",
		"enrollment_date", "completion_date", "promoted_to_class_id", "previous_school",
		"transfer_certificate_no", "created_at", "updated_at",
		"student_name", "admission_number", "class_name", "class_grade", "academic_year_name",
	})

	mock.ExpectQuery(`(?s)SELECT e\.id,.*LIMIT 100 OFFSET 0`).
		WithArgs("school-1").
		WillReturnRows(empty)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("school-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), "school-1", models.EnrollmentFilter{Page: 1, PageSize: 101})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
