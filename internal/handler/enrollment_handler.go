package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushub/enrollment-api/internal/dto"
	"github.com/campushub/enrollment-api/internal/middleware"
	"github.com/campushub/enrollment-api/internal/models"
	"github.com/campushub/enrollment-api/internal/service"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
	"github.com/campushub/enrollment-api/pkg/response"
)

// EnrollmentHandler exposes enrollment lifecycle endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param studentId query string false "Filter by student"
// @Param classId query string false "Filter by class"
// @Param academicYearId query string false "Filter by academic year"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.StudentID = c.Query("studentId")
	filter.ClassID = c.Query("classId")
	filter.AcademicYearID = c.Query("academicYearId")
	if status := c.Query("status"); status != "" {
		filter.Status = models.EnrollmentStatus(strings.ToUpper(status))
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), c.Param("schoolId"), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Create godoc
// @Summary Enroll a student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req dto.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), c.Param("schoolId"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Get godoc
// @Summary Get one enrollment
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("schoolId"), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Stats godoc
// @Summary Enrollment counts per status
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param academicYearId query string false "Narrow to one academic year"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/stats [get]
func (h *EnrollmentHandler) Stats(c *gin.Context) {
	stats, err := h.enrollments.Stats(c.Request.Context(), c.Param("schoolId"), c.Query("academicYearId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Certificate godoc
// @Summary Download a proof-of-enrollment PDF
// @Tags Enrollments
// @Produce application/pdf
// @Param schoolId path string true "School ID"
// @Param id path string true "Enrollment ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/{id}/certificate [get]
func (h *EnrollmentHandler) Certificate(c *gin.Context) {
	pdf, err := h.enrollments.Certificate(c.Request.Context(), c.Param("schoolId"), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "enrollment-certificate.pdf", "application/pdf", pdf)
}

// Activate godoc
// @Summary Activate a pending or suspended enrollment
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/{id}/activate [post]
func (h *EnrollmentHandler) Activate(c *gin.Context) {
	h.transition(c, h.enrollments.Activate)
}

// Complete godoc
// @Summary Complete an active enrollment
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/{id}/complete [post]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	h.transition(c, h.enrollments.Complete)
}

// Drop godoc
// @Summary Drop an enrollment
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/{id}/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	h.transition(c, h.enrollments.Drop)
}

// Repeat godoc
// @Summary Mark an enrollment as repeated
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/{id}/repeat [post]
func (h *EnrollmentHandler) Repeat(c *gin.Context) {
	h.transition(c, h.enrollments.MarkRepeated)
}

// Suspend godoc
// @Summary Suspend an active enrollment
// @Tags Enrollments
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/enrollments/{id}/suspend [post]
func (h *EnrollmentHandler) Suspend(c *gin.Context) {
	h.transition(c, h.enrollments.Suspend)
}

type transitionFunc func(ctx context.Context, schoolID, id string, claims *models.JWTClaims) (*models.EnrollmentDetail, error)

func (h *EnrollmentHandler) transition(c *gin.Context, fn transitionFunc) {
	enrollment, err := fn(c.Request.Context(), c.Param("schoolId"), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
