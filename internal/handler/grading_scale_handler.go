package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
	"github.com/noah-isme/whatif-grades-api/pkg/response"
)

type gradingScaleService interface {
	Get(ctx context.Context, courseID string) (*models.GradingScale, error)
	Upsert(ctx context.Context, courseID string, req models.UpsertGradingScaleRequest, actor string) (*models.GradingScale, error)
	Delete(ctx context.Context, courseID string) (*models.GradingScale, error)
	Enabled() bool
}

type gradingScaleApplier interface {
	ApplyGradingScale(courseID string, scale *models.GradingScale) int
}

// GradingScaleHandler exposes per-course letter grade scales.
type GradingScaleHandler struct {
	service gradingScaleService
	courses gradingScaleApplier
}

// NewGradingScaleHandler builds a new handler. Scale changes are pushed into
// loaded course models through courses.
func NewGradingScaleHandler(service gradingScaleService, courses gradingScaleApplier) *GradingScaleHandler {
	return &GradingScaleHandler{service: service, courses: courses}
}

// Get godoc
// @Summary Effective grading scale of a course
// @Tags Grading Scale
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /grading-scales/{courseId} [get]
func (h *GradingScaleHandler) Get(c *gin.Context) {
	scale, err := h.service.Get(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scale, map[string]interface{}{"letter_grades_enabled": h.service.Enabled()})
}

// Upsert godoc
// @Summary Store a custom grading scale
// @Tags Grading Scale
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body models.UpsertGradingScaleRequest true "Thresholds"
// @Success 200 {object} response.Envelope
// @Router /grading-scales/{courseId} [put]
func (h *GradingScaleHandler) Upsert(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.UpsertGradingScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grading scale payload"))
		return
	}
	courseID := c.Param("courseId")
	scale, err := h.service.Upsert(c.Request.Context(), courseID, req, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scale, map[string]interface{}{"courses_updated": h.apply(courseID, scale)})
}

// Delete godoc
// @Summary Revert a course to the default grading scale
// @Tags Grading Scale
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /grading-scales/{courseId} [delete]
func (h *GradingScaleHandler) Delete(c *gin.Context) {
	courseID := c.Param("courseId")
	scale, err := h.service.Delete(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scale, map[string]interface{}{"courses_updated": h.apply(courseID, scale)})
}

func (h *GradingScaleHandler) apply(courseID string, scale *models.GradingScale) int {
	if h.courses == nil || !h.service.Enabled() {
		return 0
	}
	return h.courses.ApplyGradingScale(courseID, scale)
}
