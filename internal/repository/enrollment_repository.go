package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/enrollment-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments. Methods taking an
// exec run against it when non-nil, so the same method serves pooled reads
// and transactional callers.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const enrollmentColumns = `e.id, e.school_id, e.student_id, e.academic_year_id, e.class_id, e.status,
        e.enrollment_date, e.completion_date, e.promoted_to_class_id, e.previous_school, e.transfer_certificate_no,
        e.created_at, e.updated_at`

// List returns enrollments of one school filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, schoolID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN classes c ON c.id = e.class_id
JOIN academic_years y ON y.id = e.academic_year_id`
	conditions := []string{"e.school_id = $1"}
	args := []interface{}{schoolID}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"enrollment_date": "e.enrollment_date",
		"student_name":    "s.first_name",
		"class_name":      "c.name",
		"status":          "e.status",
		"created_at":      "e.created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "enrollment_date"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.enrollment_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s,
        s.first_name || ' ' || s.last_name AS student_name, s.admission_number,
        c.name AS class_name, c.grade AS class_grade, y.name AS academic_year_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, enrollmentColumns, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID within one school.
func (r *EnrollmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e WHERE e.id = $1 AND e.school_id = $2`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, id, schoolID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student, class and year info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, schoolID, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
        s.first_name || ' ' || s.last_name AS student_name, s.admission_number,
        c.name AS class_name, c.grade AS class_grade, y.name AS academic_year_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN classes c ON c.id = e.class_id
        JOIN academic_years y ON y.id = e.academic_year_id
        WHERE e.id = $1 AND e.school_id = $2`, enrollmentColumns)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id, schoolID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindActiveByStudent returns the student's single ACTIVE enrollment across
// all academic years, or sql.ErrNoRows when there is none.
func (r *EnrollmentRepository) FindActiveByStudent(ctx context.Context, exec sqlx.ExtContext, schoolID, studentID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e
        WHERE e.student_id = $1 AND e.school_id = $2 AND e.status = $3 LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, r.exec(exec), &enrollment, query, studentID, schoolID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsForYear checks whether any enrollment row exists for the student and
// academic year, regardless of status.
func (r *EnrollmentRepository) ExistsForYear(ctx context.Context, exec sqlx.ExtContext, schoolID, studentID, academicYearID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND academic_year_id = $2 AND school_id = $3 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, studentID, academicYearID, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment for year: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, school_id, student_id, academic_year_id, class_id, status,
        enrollment_date, completion_date, promoted_to_class_id, previous_school, transfer_certificate_no, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :academic_year_id, :class_id, :status,
        :enrollment_date, :completion_date, :promoted_to_class_id, :previous_school, :transfer_certificate_no, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatusFrom moves an enrollment from one status to another. The update
// applies only when the row still holds the expected source status; the
// returned bool reports whether a row was changed.
func (r *EnrollmentRepository) UpdateStatusFrom(ctx context.Context, exec sqlx.ExtContext, schoolID, id string, from, to models.EnrollmentStatus, completionDate *time.Time) (bool, error) {
	const query = `UPDATE enrollments SET status = $4, completion_date = $5, updated_at = $6
        WHERE id = $1 AND school_id = $2 AND status = $3`
	res, err := r.exec(exec).ExecContext(ctx, query, id, schoolID, from, to, completionDate, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update enrollment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update enrollment status affected: %w", err)
	}
	return affected > 0, nil
}

// MarkPromoted closes an ACTIVE enrollment as COMPLETED while recording the
// class the student moved into. Returns false when the row was no longer
// ACTIVE, which means a concurrent transition won.
func (r *EnrollmentRepository) MarkPromoted(ctx context.Context, exec sqlx.ExtContext, schoolID, id, promotedToClassID string, completedAt time.Time) (bool, error) {
	const query = `UPDATE enrollments SET status = $4, completion_date = $5, promoted_to_class_id = $6, updated_at = $5
        WHERE id = $1 AND school_id = $2 AND status = $3`
	res, err := r.exec(exec).ExecContext(ctx, query, id, schoolID, models.EnrollmentStatusActive, models.EnrollmentStatusCompleted, completedAt, promotedToClassID)
	if err != nil {
		return false, fmt.Errorf("mark enrollment promoted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark enrollment promoted affected: %w", err)
	}
	return affected > 0, nil
}

// CountByStatus aggregates enrollment counts per status for a school,
// optionally narrowed to one academic year.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, schoolID, academicYearID string) (map[models.EnrollmentStatus]int, error) {
	query := "SELECT status, COUNT(*) AS total FROM enrollments WHERE school_id = $1"
	args := []interface{}{schoolID}
	if academicYearID != "" {
		query += fmt.Sprintf(" AND academic_year_id = $%d", len(args)+1)
		args = append(args, academicYearID)
	}
	query += " GROUP BY status"

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count enrollments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.EnrollmentStatus]int)
	for rows.Next() {
		var (
			status models.EnrollmentStatus
			total  int
		)
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}
