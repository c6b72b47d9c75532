package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/enrollment-api/internal/dto"
	"github.com/campushub/enrollment-api/internal/service"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
	"github.com/campushub/enrollment-api/pkg/response"
)

// PromotionHandler exposes the year-over-year promotion endpoints.
type PromotionHandler struct {
	promotions *service.PromotionService
}

// NewPromotionHandler constructs PromotionHandler.
func NewPromotionHandler(promotions *service.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions}
}

// Promote godoc
// @Summary Promote one student into a new academic year
// @Description Completes the student's active enrollment and opens a new one.
// @Description When no target class is given, the next class is auto-detected
// @Description from the current class's numeric grade.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.PromoteStudentRequest true "Promotion payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools/{schoolId}/promotions [post]
func (h *PromotionHandler) Promote(c *gin.Context) {
	var req dto.PromoteStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.promotions.Promote(c.Request.Context(), c.Param("schoolId"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// BulkPromote godoc
// @Summary Promote many students
// @Description Each student is promoted independently; one student's failure
// @Description never rolls back another student's promotion.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body dto.BulkPromoteRequest true "Bulk promotion payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schools/{schoolId}/promotions/bulk [post]
func (h *PromotionHandler) BulkPromote(c *gin.Context) {
	var req dto.BulkPromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.promotions.BulkPromote(c.Request.Context(), c.Param("schoolId"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
