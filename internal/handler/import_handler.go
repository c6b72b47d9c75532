package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/enrollment-api/internal/dto"
	"github.com/campushub/enrollment-api/internal/middleware"
	"github.com/campushub/enrollment-api/internal/service"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
	"github.com/campushub/enrollment-api/pkg/response"
)

// ImportHandler exposes the bulk student import endpoints. The target school
// is derived from the importing admin's account, not from the URL.
type ImportHandler struct {
	imports *service.ImportService
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports *service.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Import godoc
// @Summary Import students in bulk
// @Description Validates every row first; the write phase is all-or-nothing,
// @Description so either every row imports or none do.
// @Tags Student Import
// @Accept json
// @Produce json
// @Param payload body dto.ImportStudentsRequest true "Import batch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	var req dto.ImportStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.imports.ImportStudents(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Validate godoc
// @Summary Dry-run an import batch
// @Description Runs the validation phase only. With format=csv the row errors
// @Description come back as a downloadable CSV report.
// @Tags Student Import
// @Accept json
// @Produce json
// @Param format query string false "Response format (csv)"
// @Param payload body dto.ImportStudentsRequest true "Import batch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/import/validate [post]
func (h *ImportHandler) Validate(c *gin.Context) {
	var req dto.ImportStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.imports.ValidateStudentImport(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Query("format") == "csv" {
		report, err := h.imports.ErrorReportCSV(result)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, "import-errors.csv", "text/csv", report)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
