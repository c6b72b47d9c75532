package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushub/enrollment-api/internal/authz"
	"github.com/campushub/enrollment-api/internal/dto"
	"github.com/campushub/enrollment-api/internal/models"
	"github.com/campushub/enrollment-api/internal/repository"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, schoolID string, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
}

// ClassService manages classes within an academic year.
type ClassService struct {
	repo      classRepository
	lookups   *Lookups
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, lookups *Lookups, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, lookups: lookups, audit: audit, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, schoolID string, filter models.ClassFilter, claims *models.JWTClaims) ([]models.Class, *models.Pagination, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionClassView); err != nil {
		return nil, nil, err
	}
	classes, total, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return classes, models.NewPagination(page, size, total), nil
}

// Get returns one class.
func (s *ClassService) Get(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.Class, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionClassView); err != nil {
		return nil, err
	}
	class, err := s.repo.FindByID(ctx, nil, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a class under an academic year. The grade must be numeric
// so that year-over-year promotion can derive the next grade from it.
func (s *ClassService) Create(ctx context.Context, schoolID string, req dto.CreateClassRequest, claims *models.JWTClaims) (*models.Class, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionClassManage); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if _, err := strconv.Atoi(req.Grade); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade must be numeric")
	}
	if _, err := s.lookups.AcademicYear(ctx, nil, schoolID, req.AcademicYearID); err != nil {
		return nil, err
	}

	class := &models.Class{
		SchoolID:       schoolID,
		AcademicYearID: req.AcademicYearID,
		Name:           req.Name,
		Grade:          req.Grade,
		ClassTeacherID: req.ClassTeacherID,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class name already exists for academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	emitAudit(ctx, s.audit, s.logger, claims, schoolID, models.AuditActionClassCreate, "class", class.ID, "class "+class.Name+" created")
	return class, nil
}
