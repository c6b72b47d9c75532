package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushub/enrollment-api/internal/authz"
	"github.com/campushub/enrollment-api/internal/models"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Student, error)
}

type guardianLister interface {
	ListByStudent(ctx context.Context, schoolID, studentID string) ([]models.GuardianLink, error)
}

// StudentService handles student read use-cases. Students enter the system
// through enrollment or bulk import.
type StudentService struct {
	repo      studentRepository
	guardians guardianLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, guardians guardianLister, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, guardians: guardians, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, schoolID string, filter models.StudentFilter, claims *models.JWTClaims) ([]models.Student, *models.Pagination, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionStudentView); err != nil {
		return nil, nil, err
	}
	students, total, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, models.NewPagination(page, size, total), nil
}

// Get returns one student with linked guardians.
func (s *StudentService) Get(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.StudentDetail, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionStudentView); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, nil, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	guardians, err := s.guardians.ListByStudent(ctx, schoolID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardians")
	}
	return &models.StudentDetail{Student: *student, Guardians: guardians}, nil
}
