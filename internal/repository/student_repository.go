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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const studentColumns = `id, school_id, admission_number, first_name, last_name, gender, date_of_birth, previous_school, active, created_at, updated_at`

// List returns students of one school matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students WHERE school_id = $1"
	args := []interface{}{schoolID}
	var conditions []string

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(admission_number) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"first_name":       true,
		"last_name":        true,
		"admission_number": true,
		"created_at":       true,
	}
	if sortBy == "" || !allowedSorts[sortBy] {
		sortBy = "created_at"
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
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, sortBy, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID within one school.
func (r *StudentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1 AND school_id = $2`, studentColumns)
	var student models.Student
	if err := sqlx.GetContext(ctx, r.exec(exec), &student, query, id, schoolID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByAdmissionNumber checks whether an admission number is already taken
// within the school.
func (r *StudentRepository) ExistsByAdmissionNumber(ctx context.Context, exec sqlx.ExtContext, schoolID, admissionNumber string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE school_id = $1 AND admission_number = $2 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, schoolID, admissionNumber); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check admission number: %w", err)
	}
	return true, nil
}

// ListAdmissionNumbers loads every admission number registered in the school.
func (r *StudentRepository) ListAdmissionNumbers(ctx context.Context, schoolID string) ([]string, error) {
	const query = `SELECT admission_number FROM students WHERE school_id = $1`
	var numbers []string
	if err := r.db.SelectContext(ctx, &numbers, query, schoolID); err != nil {
		return nil, fmt.Errorf("list admission numbers: %w", err)
	}
	return numbers, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, school_id, admission_number, first_name, last_name, gender, date_of_birth, previous_school, active, created_at, updated_at)
        VALUES (:id, :school_id, :admission_number, :first_name, :last_name, :gender, :date_of_birth, :previous_school, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}
