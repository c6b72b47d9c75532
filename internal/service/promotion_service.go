package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
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

type promotionEnrollmentStore interface {
	FindActiveByStudent(ctx context.Context, exec sqlx.ExtContext, schoolID, studentID string) (*models.Enrollment, error)
	ExistsForYear(ctx context.Context, exec sqlx.ExtContext, schoolID, studentID, academicYearID string) (bool, error)
	MarkPromoted(ctx context.Context, exec sqlx.ExtContext, schoolID, id, promotedToClassID string, completedAt time.Time) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	FindDetailByID(ctx context.Context, schoolID, id string) (*models.EnrollmentDetail, error)
}

type gradeClassFinder interface {
	FindByGrade(ctx context.Context, exec sqlx.ExtContext, schoolID, academicYearID, grade string) (*models.Class, error)
}

// PromotionService moves students from their current enrollment into the next
// academic year. Completing the old enrollment and opening the new one happen
// in one transaction.
type PromotionService struct {
	enrollments promotionEnrollmentStore
	classes     gradeClassFinder
	lookups     *Lookups
	tx          txProvider
	cache       statsCache
	audit       auditLogger
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPromotionService constructs PromotionService.
func NewPromotionService(enrollments promotionEnrollmentStore, classes gradeClassFinder, lookups *Lookups, tx txProvider, cache statsCache, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PromotionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionService{
		enrollments: enrollments,
		classes:     classes,
		lookups:     lookups,
		tx:          tx,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Promote completes a student's active enrollment and opens an ACTIVE one in
// the target academic year.
func (s *PromotionService) Promote(ctx context.Context, schoolID string, req dto.PromoteStudentRequest, claims *models.JWTClaims) (*models.EnrollmentDetail, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionPromotionExecute); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}

	detail, err := s.promoteOne(ctx, schoolID, req)
	s.metrics.RecordPromotion(err == nil)
	if err != nil {
		return nil, err
	}

	emitAudit(ctx, s.audit, s.logger, claims, schoolID, models.AuditActionPromotion, "enrollment", detail.ID,
		fmt.Sprintf("student %s promoted into class %s", req.StudentID, detail.ClassName))
	return detail, nil
}

// BulkPromote promotes many students. Each student is promoted in its own
// transaction, so one failure never rolls back another student's promotion.
// Outcomes are reported in input order.
func (s *PromotionService) BulkPromote(ctx context.Context, schoolID string, req dto.BulkPromoteRequest, claims *models.JWTClaims) (*models.BulkPromotionResult, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionPromotionExecute); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk promotion payload")
	}

	result := &models.BulkPromotionResult{
		Successful: make([]models.PromotionSuccess, 0, len(req.StudentIDs)),
		Failed:     make([]models.PromotionFailure, 0),
	}
	for _, studentID := range req.StudentIDs {
		detail, err := s.promoteOne(ctx, schoolID, dto.PromoteStudentRequest{
			StudentID:            studentID,
			TargetAcademicYearID: req.TargetAcademicYearID,
			TargetClassID:        req.TargetClassID,
		})
		s.metrics.RecordPromotion(err == nil)
		if err != nil {
			result.Failed = append(result.Failed, models.PromotionFailure{StudentID: studentID, Error: err.Error()})
			continue
		}
		result.Successful = append(result.Successful, models.PromotionSuccess{StudentID: studentID, Enrollment: detail})
	}

	emitAudit(ctx, s.audit, s.logger, claims, schoolID, models.AuditActionBulkPromotion, "promotion", req.TargetAcademicYearID,
		fmt.Sprintf("%d promoted, %d failed", len(result.Successful), len(result.Failed)))
	return result, nil
}

func (s *PromotionService) promoteOne(ctx context.Context, schoolID string, req dto.PromoteStudentRequest) (*models.EnrollmentDetail, error) {
	current, err := s.enrollments.FindActiveByStudent(ctx, nil, schoolID, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active enrollment for student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active enrollment")
	}

	if _, err := s.lookups.AcademicYear(ctx, nil, schoolID, req.TargetAcademicYearID); err != nil {
		return nil, err
	}

	target, err := s.resolveTargetClass(ctx, schoolID, current, req)
	if err != nil {
		return nil, err
	}

	exists, err := s.enrollments.ExistsForYear(ctx, nil, schoolID, req.StudentID, req.TargetAcademicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate promotion")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled for target academic year")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	promoted, err := s.enrollments.MarkPromoted(ctx, tx, schoolID, current.ID, target.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete current enrollment")
	}
	if !promoted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "active enrollment changed concurrently")
	}

	next := &models.Enrollment{
		SchoolID:       schoolID,
		StudentID:      req.StudentID,
		AcademicYearID: req.TargetAcademicYearID,
		ClassID:        target.ID,
		Status:         models.EnrollmentStatusActive,
		EnrollmentDate: now,
	}
	if err := s.enrollments.Create(ctx, tx, next); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled for target academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create promoted enrollment")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit promotion")
	}
	committed = true

	invalidateStatsCache(ctx, s.cache, s.logger, schoolID)

	detail, err := s.enrollments.FindDetailByID(ctx, schoolID, next.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// resolveTargetClass returns the explicit target class when one is given,
// otherwise auto-detects the class one grade above the student's current one
// in the target year.
func (s *PromotionService) resolveTargetClass(ctx context.Context, schoolID string, current *models.Enrollment, req dto.PromoteStudentRequest) (*models.Class, error) {
	if req.TargetClassID != "" {
		target, err := s.lookups.Class(ctx, nil, schoolID, req.TargetClassID)
		if err != nil {
			return nil, err
		}
		if target.AcademicYearID != req.TargetAcademicYearID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "target class does not belong to target academic year")
		}
		return target, nil
	}

	currentClass, err := s.lookups.Class(ctx, nil, schoolID, current.ClassID)
	if err != nil {
		return nil, err
	}
	grade, err := strconv.Atoi(currentClass.Grade)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot auto-detect next class: invalid current grade")
	}
	target, err := s.classes.FindByGrade(ctx, nil, schoolID, req.TargetAcademicYearID, strconv.Itoa(grade+1))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "next grade class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve next grade class")
	}
	return target, nil
}
