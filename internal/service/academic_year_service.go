package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushub/enrollment-api/internal/authz"
	"github.com/campushub/enrollment-api/internal/dto"
	"github.com/campushub/enrollment-api/internal/models"
	"github.com/campushub/enrollment-api/internal/repository"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
)

type academicYearRepository interface {
	List(ctx context.Context, schoolID string, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.AcademicYear, error)
	FindCurrent(ctx context.Context, schoolID string) (*models.AcademicYear, error)
	ExistsByName(ctx context.Context, schoolID, name string) (bool, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	SetCurrent(ctx context.Context, schoolID, id string) error
}

// AcademicYearService manages the school year catalog.
type AcademicYearService struct {
	repo      academicYearRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicYearService constructs AcademicYearService.
func NewAcademicYearService(repo academicYearRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *AcademicYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns academic years with pagination metadata.
func (s *AcademicYearService) List(ctx context.Context, schoolID string, filter models.AcademicYearFilter, claims *models.JWTClaims) ([]models.AcademicYear, *models.Pagination, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionYearView); err != nil {
		return nil, nil, err
	}
	years, total, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return years, models.NewPagination(page, size, total), nil
}

// Get returns one academic year.
func (s *AcademicYearService) Get(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.AcademicYear, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionYearView); err != nil {
		return nil, err
	}
	year, err := s.repo.FindByID(ctx, nil, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return year, nil
}

// Current returns the school's current academic year.
func (s *AcademicYearService) Current(ctx context.Context, schoolID string, claims *models.JWTClaims) (*models.AcademicYear, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionYearView); err != nil {
		return nil, err
	}
	year, err := s.repo.FindCurrent(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no current academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current academic year")
	}
	return year, nil
}

// Create registers a new academic year.
func (s *AcademicYearService) Create(ctx context.Context, schoolID string, req dto.CreateAcademicYearRequest, claims *models.JWTClaims) (*models.AcademicYear, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionYearManage); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	exists, err := s.repo.ExistsByName(ctx, schoolID, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate academic year")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "academic year name already exists")
	}

	year := &models.AcademicYear{
		SchoolID:  schoolID,
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
	}
	if err := s.repo.Create(ctx, year); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "academic year name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}
	if req.IsCurrent {
		if err := s.repo.SetCurrent(ctx, schoolID, year.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark academic year current")
		}
		year.IsCurrent = true
	}

	emitAudit(ctx, s.audit, s.logger, claims, schoolID, models.AuditActionYearCreate, "academic_year", year.ID, "academic year "+year.Name+" created")
	return year, nil
}

// SetCurrent marks one academic year as the school's current one and clears
// the flag on every sibling.
func (s *AcademicYearService) SetCurrent(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.AcademicYear, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionYearManage); err != nil {
		return nil, err
	}
	if err := s.repo.SetCurrent(ctx, schoolID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current academic year")
	}

	emitAudit(ctx, s.audit, s.logger, claims, schoolID, models.AuditActionYearSetCurrent, "academic_year", id, "academic year marked current")

	year, err := s.repo.FindByID(ctx, nil, schoolID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return year, nil
}
