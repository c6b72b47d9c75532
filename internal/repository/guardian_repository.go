package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/enrollment-api/internal/models"
)

// GuardianRepository persists guardians and their student links.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository constructs a GuardianRepository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

func (r *GuardianRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a new guardian record.
func (r *GuardianRepository) Create(ctx context.Context, exec sqlx.ExtContext, guardian *models.Guardian) error {
	if guardian.ID == "" {
		guardian.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if guardian.CreatedAt.IsZero() {
		guardian.CreatedAt = now
	}
	guardian.UpdatedAt = now

	const query = `INSERT INTO guardians (id, school_id, full_name, phone, email, relationship, created_at, updated_at)
        VALUES (:id, :school_id, :full_name, :phone, :email, :relationship, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, guardian); err != nil {
		return fmt.Errorf("create guardian: %w", err)
	}
	return nil
}

// Link attaches a guardian to a student with its contact flags.
func (r *GuardianRepository) Link(ctx context.Context, exec sqlx.ExtContext, studentID, guardianID string, isPrimary, isEmergency bool) error {
	const query = `INSERT INTO student_guardians (student_id, guardian_id, is_primary_contact, is_emergency_contact)
        VALUES ($1, $2, $3, $4)`
	if _, err := r.exec(exec).ExecContext(ctx, query, studentID, guardianID, isPrimary, isEmergency); err != nil {
		return fmt.Errorf("link guardian: %w", err)
	}
	return nil
}

// ListByStudent returns all guardians linked to one student of the school.
func (r *GuardianRepository) ListByStudent(ctx context.Context, schoolID, studentID string) ([]models.GuardianLink, error) {
	const query = `SELECT g.id, g.school_id, g.full_name, g.phone, g.email, g.relationship, g.created_at, g.updated_at,
        sg.is_primary_contact, sg.is_emergency_contact
        FROM guardians g
        JOIN student_guardians sg ON sg.guardian_id = g.id
        WHERE sg.student_id = $1 AND g.school_id = $2
        ORDER BY sg.is_primary_contact DESC, g.full_name ASC`
	var guardians []models.GuardianLink
	if err := r.db.SelectContext(ctx, &guardians, query, studentID, schoolID); err != nil {
		return nil, fmt.Errorf("list student guardians: %w", err)
	}
	return guardians, nil
}
