package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	"github.com/noah-isme/whatif-grades-api/internal/service"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
	"github.com/noah-isme/whatif-grades-api/pkg/response"
)

type gradebookService interface {
	Load(ctx context.Context, userID string, snapshot models.CourseSnapshot, wait bool) (models.CourseView, error)
	Get(ctx context.Context, userID, courseID string, whatIf, wait bool) (models.CourseView, error)
	Detail(userID, courseID string, whatIf bool) (string, error)
	Export(userID, courseID, format string, whatIf bool) (*service.ExportResult, error)
	SetWhatIf(userID, courseID, assignmentID string, req models.WhatIfRequest) (models.WhatIfResult, error)
	ClearWhatIf(userID, courseID, assignmentID string) (models.WhatIfResult, error)
	SetMethodOverride(userID, courseID, categoryID string, enabled bool) (models.WhatIfResult, error)
	WaitForPoints(ctx context.Context, userID, courseID, assignmentID string, timeout time.Duration) error
	Delete(ctx context.Context, userID, courseID string) error
}

// GradebookHandler exposes course model endpoints.
type GradebookHandler struct {
	service gradebookService
}

// NewGradebookHandler builds a new handler.
func NewGradebookHandler(service gradebookService) *GradebookHandler {
	return &GradebookHandler{service: service}
}

// Load godoc
// @Summary Load a course snapshot
// @Description Builds the course model from host fields and starts resolving missing scores.
// @Tags Gradebook
// @Accept json
// @Produce json
// @Param payload body models.CourseSnapshot true "Course snapshot"
// @Param wait query bool false "Block until every score is resolved"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *GradebookHandler) Load(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var snapshot models.CourseSnapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course snapshot"))
		return
	}
	wait, err := boolQuery(c, "wait")
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Load(c.Request.Context(), userID, snapshot, wait)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Get godoc
// @Summary Render a loaded course
// @Tags Gradebook
// @Produce json
// @Param courseId path string true "Course ID"
// @Param whatIf query bool false "Render hypothetical scores"
// @Param wait query bool false "Block until loading finishes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId} [get]
func (h *GradebookHandler) Get(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	whatIf, err := boolQuery(c, "whatIf")
	if err != nil {
		response.Error(c, err)
		return
	}
	wait, err := boolQuery(c, "wait")
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Get(c.Request.Context(), userID, c.Param("courseId"), whatIf, wait)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Detail godoc
// @Summary Detailed text dump of a course
// @Tags Gradebook
// @Produce plain
// @Param courseId path string true "Course ID"
// @Param whatIf query bool false "Render hypothetical scores"
// @Success 200 {string} string
// @Router /courses/{courseId}/detail [get]
func (h *GradebookHandler) Detail(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	whatIf, err := boolQuery(c, "whatIf")
	if err != nil {
		response.Error(c, err)
		return
	}
	text, err := h.service.Detail(userID, c.Param("courseId"), whatIf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Text(c, http.StatusOK, text)
}

// Export godoc
// @Summary Export a course as CSV or PDF
// @Tags Gradebook
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path string true "Course ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Param whatIf query bool false "Render hypothetical scores"
// @Success 200 {file} file
// @Router /courses/{courseId}/export [get]
func (h *GradebookHandler) Export(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	whatIf, err := boolQuery(c, "whatIf")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Export(userID, c.Param("courseId"), c.DefaultQuery("format", service.ExportFormatCSV), whatIf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// SetWhatIf godoc
// @Summary Set a hypothetical score
// @Description Omitted fields fall back to the real score.
// @Tags Gradebook
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param assignmentId path string true "Assignment ID"
// @Param payload body models.WhatIfRequest true "What-if score"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/assignments/{assignmentId}/what-if [put]
func (h *GradebookHandler) SetWhatIf(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.WhatIfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid what-if payload"))
		return
	}
	result, err := h.service.SetWhatIf(userID, c.Param("courseId"), c.Param("assignmentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ClearWhatIf godoc
// @Summary Clear a hypothetical score
// @Tags Gradebook
// @Produce json
// @Param courseId path string true "Course ID"
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/assignments/{assignmentId}/what-if [delete]
func (h *GradebookHandler) ClearWhatIf(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.ClearWhatIf(userID, c.Param("courseId"), c.Param("assignmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// WaitForPoints godoc
// @Summary Wait for an assignment's real score
// @Tags Gradebook
// @Produce json
// @Param courseId path string true "Course ID"
// @Param assignmentId path string true "Assignment ID"
// @Param timeout query string false "Duration such as 10s, or seconds"
// @Success 204
// @Failure 502 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /courses/{courseId}/assignments/{assignmentId}/wait [get]
func (h *GradebookHandler) WaitForPoints(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	timeout, err := durationQuery(c, "timeout")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.WaitForPoints(c.Request.Context(), userID, c.Param("courseId"), c.Param("assignmentId"), timeout); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetMethodOverride godoc
// @Summary Flip a category's assumed grading method in what-if mode
// @Tags Gradebook
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param categoryId path string true "Category ID"
// @Param payload body models.MethodOverrideRequest true "Override flag"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/categories/{categoryId}/method-override [put]
func (h *GradebookHandler) SetMethodOverride(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.MethodOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	result, err := h.service.SetMethodOverride(userID, c.Param("courseId"), c.Param("categoryId"), req.Enabled)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Delete godoc
// @Summary Tear down a loaded course
// @Tags Gradebook
// @Param courseId path string true "Course ID"
// @Success 204
// @Router /courses/{courseId} [delete]
func (h *GradebookHandler) Delete(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
