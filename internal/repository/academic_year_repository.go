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

// AcademicYearRepository handles persistence for academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository instantiates an academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

func (r *AcademicYearRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const academicYearColumns = `id, school_id, name, start_date, end_date, is_current, created_at, updated_at`

// List returns academic years of one school matching provided filters.
func (r *AcademicYearRepository) List(ctx context.Context, schoolID string, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error) {
	base := "FROM academic_years WHERE school_id = $1"
	args := []interface{}{schoolID}

	if filter.IsCurrent != nil {
		base += fmt.Sprintf(" AND is_current = $%d", len(args)+1)
		args = append(args, *filter.IsCurrent)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"start_date": true,
		"end_date":   true,
		"created_at": true,
	}
	if sortBy == "" || !allowedSorts[sortBy] {
		sortBy = "start_date"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", academicYearColumns, base, sortBy, order, size, offset)

	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list academic years: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count academic years: %w", err)
	}
	return years, total, nil
}

// FindByID loads an academic year by identifier within one school.
func (r *AcademicYearRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.AcademicYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE id = $1 AND school_id = $2`, academicYearColumns)
	var year models.AcademicYear
	if err := sqlx.GetContext(ctx, r.exec(exec), &year, query, id, schoolID); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindCurrent returns the school's current academic year.
func (r *AcademicYearRepository) FindCurrent(ctx context.Context, schoolID string) (*models.AcademicYear, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_years WHERE school_id = $1 AND is_current = TRUE LIMIT 1`, academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, schoolID); err != nil {
		return nil, err
	}
	return &year, nil
}

// ExistsByName checks whether the school already has a year with this name.
func (r *AcademicYearRepository) ExistsByName(ctx context.Context, schoolID, name string) (bool, error) {
	const query = `SELECT 1 FROM academic_years WHERE school_id = $1 AND name = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, schoolID, name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check academic year name: %w", err)
	}
	return true, nil
}

// Create inserts a new academic year record.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if year.CreatedAt.IsZero() {
		year.CreatedAt = now
	}
	year.UpdatedAt = now

	const query = `INSERT INTO academic_years (id, school_id, name, start_date, end_date, is_current, created_at, updated_at)
        VALUES (:id, :school_id, :name, :start_date, :end_date, :is_current, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// SetCurrent marks the provided year as current and clears the flag on the
// school's other years, inside one transaction.
func (r *AcademicYearRepository) SetCurrent(ctx context.Context, schoolID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE school_id = $2 AND is_current = TRUE AND id <> $3`, now, schoolID, id); err != nil {
		return fmt.Errorf("clear current years: %w", err)
	}

	res, execErr := tx.ExecContext(ctx, `UPDATE academic_years SET is_current = TRUE, updated_at = $1 WHERE id = $2 AND school_id = $3`, now, id, schoolID)
	if execErr != nil {
		err = fmt.Errorf("set current year: %w", execErr)
		return err
	}
	affected, affErr := res.RowsAffected()
	if affErr != nil {
		err = fmt.Errorf("set current year affected: %w", affErr)
		return err
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set current tx: %w", err)
	}
	return nil
}
