package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/enrollment-api/internal/models"
)

// ClassRepository manages persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

func (r *ClassRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const classColumns = `id, school_id, academic_year_id, name, grade, class_teacher_id, created_at, updated_at`

// List returns classes of one school matching filter criteria.
func (r *ClassRepository) List(ctx context.Context, schoolID string, filter models.ClassFilter) ([]models.Class, int, error) {
	base := "FROM classes WHERE school_id = $1"
	args := []interface{}{schoolID}
	var conditions []string

	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"grade":      true,
		"created_at": true,
	}
	if sortBy == "" || !allowedSorts[sortBy] {
		sortBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", classColumns, base, sortBy, order, size, offset)

	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID loads a class by identifier within one school.
func (r *ClassRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1 AND school_id = $2`, classColumns)
	var class models.Class
	if err := sqlx.GetContext(ctx, r.exec(exec), &class, query, id, schoolID); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindByGrade returns one class holding the given grade in the given academic
// year, or sql.ErrNoRows when none exists. Used by promotion auto-detection.
func (r *ClassRepository) FindByGrade(ctx context.Context, exec sqlx.ExtContext, schoolID, academicYearID, grade string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes
        WHERE school_id = $1 AND academic_year_id = $2 AND grade = $3
        ORDER BY name ASC LIMIT 1`, classColumns)
	var class models.Class
	if err := sqlx.GetContext(ctx, r.exec(exec), &class, query, schoolID, academicYearID, grade); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListByYear loads every class offered in one academic year.
func (r *ClassRepository) ListByYear(ctx context.Context, schoolID, academicYearID string) ([]models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE school_id = $1 AND academic_year_id = $2 ORDER BY name ASC`, classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, schoolID, academicYearID); err != nil {
		return nil, fmt.Errorf("list classes by year: %w", err)
	}
	return classes, nil
}

// Create inserts a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, school_id, academic_year_id, name, grade, class_teacher_id, created_at, updated_at)
        VALUES (:id, :school_id, :academic_year_id, :name, :grade, :class_teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}
