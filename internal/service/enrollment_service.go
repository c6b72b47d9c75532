package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushub/enrollment-api/internal/authz"
	"github.com/campushub/enrollment-api/internal/dto"
	"github.com/campushub/enrollment-api/internal/models"
	"github.com/campushub/enrollment-api/internal/repository"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
	"github.com/campushub/enrollment-api/pkg/export"
)

type enrollmentRepository interface {
	List(ctx context.Context, schoolID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, schoolID, id string) (*models.EnrollmentDetail, error)
	FindActiveByStudent(ctx context.Context, exec sqlx.ExtContext, schoolID, studentID string) (*models.Enrollment, error)
	ExistsForYear(ctx context.Context, exec sqlx.ExtContext, schoolID, studentID, academicYearID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	UpdateStatusFrom(ctx context.Context, exec sqlx.ExtContext, schoolID, id string, from, to models.EnrollmentStatus, completionDate *time.Time) (bool, error)
	CountByStatus(ctx context.Context, schoolID, academicYearID string) (map[models.EnrollmentStatus]int, error)
}

type schoolReader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type certificateRenderer interface {
	Certificate(data export.CertificateData) ([]byte, error)
}

// EnrollmentService orchestrates the enrollment lifecycle for one school.
type EnrollmentService struct {
	repo      enrollmentRepository
	lookups   *Lookups
	schools   schoolReader
	tx        txProvider
	cache     statsCache
	audit     auditLogger
	metrics   *MetricsService
	pdf       certificateRenderer
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, lookups *Lookups, schools schoolReader, tx txProvider, cache statsCache, audit auditLogger, metrics *MetricsService, pdf certificateRenderer, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		lookups:   lookups,
		schools:   schools,
		tx:        tx,
		cache:     cache,
		audit:     audit,
		metrics:   metrics,
		pdf:       pdf,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// Enroll registers a student into a class for an academic year. A student may
// hold at most one enrollment per academic year and at most one ACTIVE
// enrollment overall.
func (s *EnrollmentService) Enroll(ctx context.Context, schoolID string, req dto.CreateEnrollmentRequest, claims *models.JWTClaims) (*models.EnrollmentDetail, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionEnrollmentCreate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	status := models.EnrollmentStatusActive
	if req.Status != "" {
		status = models.EnrollmentStatus(req.Status)
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

	student, err := s.lookups.Student(ctx, tx, schoolID, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student inactive")
	}
	class, err := s.lookups.Class(ctx, tx, schoolID, req.ClassID)
	if err != nil {
		return nil, err
	}
	if _, err := s.lookups.AcademicYear(ctx, tx, schoolID, req.AcademicYearID); err != nil {
		return nil, err
	}
	if class.AcademicYearID != req.AcademicYearID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class does not belong to academic year")
	}

	exists, err := s.repo.ExistsForYear(ctx, tx, schoolID, req.StudentID, req.AcademicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled for academic year")
	}

	if status == models.EnrollmentStatusActive {
		if _, err := s.repo.FindActiveByStudent(ctx, tx, schoolID, req.StudentID); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active enrollment")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
		}
	}

	enrollment := &models.Enrollment{
		SchoolID:              schoolID,
		StudentID:             req.StudentID,
		AcademicYearID:        req.AcademicYearID,
		ClassID:               req.ClassID,
		Status:                status,
		PreviousSchool:        req.PreviousSchool,
		TransferCertificateNo: req.TransferCertificateNo,
	}
	if req.EnrollmentDate != nil {
		enrollment.EnrollmentDate = req.EnrollmentDate.UTC()
	}
	if err := s.repo.Create(ctx, tx, enrollment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled for academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit enrollment")
	}
	committed = true

	invalidateStatsCache(ctx, s.cache, s.logger, schoolID)
	s.metrics.RecordEnrollmentTransition(status)
	emitAudit(ctx, s.audit, s.logger, claims, schoolID, models.AuditActionEnrollmentCreate, "enrollment", enrollment.ID,
		fmt.Sprintf("student %s enrolled with status %s", req.StudentID, status))

	detail, err := s.repo.FindDetailByID(ctx, schoolID, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Get returns one enrollment with student, class and year context.
func (s *EnrollmentService) Get(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.EnrollmentDetail, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionEnrollmentView); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, schoolID string, filter models.EnrollmentFilter, claims *models.JWTClaims) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionEnrollmentView); err != nil {
		return nil, nil, err
	}
	enrollments, total, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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
	return enrollments, models.NewPagination(page, size, total), nil
}

// Activate moves a PENDING enrollment to ACTIVE, or reinstates a SUSPENDED
// one.
func (s *EnrollmentService) Activate(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.EnrollmentDetail, error) {
	return s.transition(ctx, schoolID, id, models.EnrollmentStatusActive, claims)
}

// Complete marks an ACTIVE enrollment as COMPLETED.
func (s *EnrollmentService) Complete(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.EnrollmentDetail, error) {
	return s.transition(ctx, schoolID, id, models.EnrollmentStatusCompleted, claims)
}

// Drop marks an enrollment as DROPPED.
func (s *EnrollmentService) Drop(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.EnrollmentDetail, error) {
	return s.transition(ctx, schoolID, id, models.EnrollmentStatusDropped, claims)
}

// MarkRepeated marks an ACTIVE enrollment as REPEATED.
func (s *EnrollmentService) MarkRepeated(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.EnrollmentDetail, error) {
	return s.transition(ctx, schoolID, id, models.EnrollmentStatusRepeated, claims)
}

// Suspend marks an ACTIVE enrollment as SUSPENDED.
func (s *EnrollmentService) Suspend(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.EnrollmentDetail, error) {
	return s.transition(ctx, schoolID, id, models.EnrollmentStatusSuspended, claims)
}

func (s *EnrollmentService) transition(ctx context.Context, schoolID, id string, target models.EnrollmentStatus, claims *models.JWTClaims) (*models.EnrollmentDetail, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionEnrollmentTransition); err != nil {
		return nil, err
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

	enrollment, err := s.repo.FindByID(ctx, tx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !enrollment.Status.CanTransitionTo(target) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot transition enrollment from %s to %s", enrollment.Status, target))
	}

	if target == models.EnrollmentStatusActive {
		if _, err := s.repo.FindActiveByStudent(ctx, tx, schoolID, enrollment.StudentID); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active enrollment")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
		}
	}

	var completionDate *time.Time
	switch target {
	case models.EnrollmentStatusCompleted, models.EnrollmentStatusDropped, models.EnrollmentStatusRepeated:
		now := time.Now().UTC()
		completionDate = &now
	}

	updated, err := s.repo.UpdateStatusFrom(ctx, tx, schoolID, id, enrollment.Status, target, completionDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment status changed concurrently")
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit status transition")
	}
	committed = true

	invalidateStatsCache(ctx, s.cache, s.logger, schoolID)
	s.metrics.RecordEnrollmentTransition(target)
	emitAudit(ctx, s.audit, s.logger, claims, schoolID, models.AuditActionEnrollmentTransition, "enrollment", id,
		fmt.Sprintf("status %s to %s", enrollment.Status, target))

	detail, err := s.repo.FindDetailByID(ctx, schoolID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Stats returns enrollment counts per status, cached per school and year.
func (s *EnrollmentService) Stats(ctx context.Context, schoolID, academicYearID string, claims *models.JWTClaims) (*models.EnrollmentStats, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionEnrollmentView); err != nil {
		return nil, err
	}

	scope := academicYearID
	if scope == "" {
		scope = "all"
	}
	key := fmt.Sprintf("enrollment:stats:%s:%s", schoolID, scope)

	if s.cache != nil {
		var cached models.EnrollmentStats
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true, 0)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("enrollment stats cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false, 0)
	}

	counts, err := s.repo.CountByStatus(ctx, schoolID, academicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute enrollment stats")
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	stats := &models.EnrollmentStats{
		SchoolID:       schoolID,
		AcademicYearID: academicYearID,
		Total:          total,
		ByStatus:       counts,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
			s.logger.Warn("enrollment stats cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return stats, nil
}

// Certificate renders an enrollment certificate PDF for an active or
// completed enrollment.
func (s *EnrollmentService) Certificate(ctx context.Context, schoolID, id string, claims *models.JWTClaims) ([]byte, error) {
	if err := authz.Authorize(claims, schoolID, authz.ActionEnrollmentView); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if detail.Status != models.EnrollmentStatusActive && detail.Status != models.EnrollmentStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "certificate available only for active or completed enrollments")
	}

	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	certNo := "CERT-" + detail.ID
	if detail.TransferCertificateNo != nil && *detail.TransferCertificateNo != "" {
		certNo = *detail.TransferCertificateNo
	}

	data := export.CertificateData{
		SchoolName:      school.Name,
		StudentName:     detail.StudentName,
		AdmissionNumber: detail.AdmissionNumber,
		AcademicYear:    detail.AcademicYearName,
		ClassName:       detail.ClassName,
		Status:          string(detail.Status),
		EnrollmentDate:  detail.EnrollmentDate.Format("02 January 2006"),
		CertificateNo:   certNo,
		IssuedAt:        time.Now().UTC().Format("02 January 2006"),
	}
	pdf, err := s.pdf.Certificate(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return pdf, nil
}

// invalidateStatsCache drops every cached stats entry for the school after an
// enrollment write.
func invalidateStatsCache(ctx context.Context, cache statsCache, logger *zap.Logger, schoolID string) {
	if cache == nil {
		return
	}
	if err := cache.DeleteByPattern(ctx, fmt.Sprintf("enrollment:stats:%s:*", schoolID)); err != nil {
		logger.Warn("failed to invalidate enrollment stats cache", zap.String("school_id", schoolID), zap.Error(err))
	}
}

// emitAudit records an audit entry on a best effort basis. Audit failures are
// logged and never fail the calling operation.
func emitAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, claims *models.JWTClaims, schoolID, action, resource, resourceID, detail string) {
	if audit == nil {
		return
	}
	entry := &models.AuditLog{
		SchoolID:   &schoolID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		Detail:     detail,
	}
	if claims != nil {
		entry.UserID = &claims.UserID
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
