package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushub/enrollment-api/internal/dto"
	"github.com/campushub/enrollment-api/internal/models"
	"github.com/campushub/enrollment-api/internal/service"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
	"github.com/campushub/enrollment-api/pkg/response"
)

// AcademicYearHandler exposes the school year catalog endpoints.
type AcademicYearHandler struct {
	years *service.AcademicYearService
}

// NewAcademicYearHandler constructs AcademicYearHandler.
func NewAcademicYearHandler(years *service.AcademicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{years: years}
}

// List godoc
// @Summary List academic years
// @Tags Academic Years
// @Produce json
// @Param schoolId path string true "School ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/academic-years [get]
func (h *AcademicYearHandler) List(c *gin.Context) {
	var filter models.AcademicYearFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	years, pagination, err := h.years.List(c.Request.Context(), c.Param("schoolId"), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, pagination)
}

// Current godoc
// @Summary Get the current academic year
// @Tags Academic Years
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{schoolId}/academic-years/current [get]
func (h *AcademicYearHandler) Current(c *gin.Context) {
	year, err := h.years.Current(c.Request.Context(), c.Param("schoolId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Get godoc
// @Summary Get one academic year
// @Tags Academic Years
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{schoolId}/academic-years/{id} [get]
func (h *AcademicYearHandler) Get(c *gin.Context) {
	year, err := h.years.Get(c.Request.Context(), c.Param("schoolId"), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Create godoc
// @Summary Open a new academic year
// @Tags Academic Years
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.CreateAcademicYearRequest true "Academic year payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/academic-years [post]
func (h *AcademicYearHandler) Create(c *gin.Context) {
	var req dto.CreateAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.years.Create(c.Request.Context(), c.Param("schoolId"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// SetCurrent godoc
// @Summary Mark an academic year as current
// @Tags Academic Years
// @Produce json
// @Param schoolId path string true "School ID"
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{schoolId}/academic-years/{id}/current [post]
func (h *AcademicYearHandler) SetCurrent(c *gin.Context) {
	year, err := h.years.SetCurrent(c.Request.Context(), c.Param("schoolId"), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}
