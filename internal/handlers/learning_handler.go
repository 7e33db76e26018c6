package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

// LearningHandler serves the course player, progress and the public ranking
type LearningHandler struct {
	BaseHandler
	learning    services.LearningService
	enrollments services.EnrollmentService
	progress    services.ProgressService
}

func NewLearningHandler(learning services.LearningService, enrollments services.EnrollmentService, progress services.ProgressService, logger utils.Logger) *LearningHandler {
	return &LearningHandler{
		BaseHandler: NewBaseHandler(logger),
		learning:    learning,
		enrollments: enrollments,
		progress:    progress,
	}
}

// MyCourses
// @Summary Courses the caller is enrolled in
// @Tags learning
// @Produce json
// @Success 200 {array} models.Enrollment
// @Failure 401 {object} ErrorResponse
// @Router /learning/courses [get]
func (h *LearningHandler) MyCourses(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	enrollments, err := h.enrollments.ListMyCourses(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrollments)
}

// GetCoursePlayer
// @Summary Full course content for an enrolled user
// @Tags learning
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} services.CoursePlayerResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /learning/courses/{id} [get]
func (h *LearningHandler) GetCoursePlayer(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	player, err := h.learning.GetCoursePlayer(c.Request.Context(), user, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}

// UpdateProgress
// @Summary Mark a module as completed or not
// @Tags learning
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param module_id path int true "Module ID"
// @Param body body validator.ProgressUpdateRequest true "Completion flag"
// @Success 200 {object} models.CourseProgress
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /learning/courses/{id}/modules/{module_id}/progress [put]
func (h *LearningHandler) UpdateProgress(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}
	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req validator.ProgressUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Completed == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validator.ValidationErrors{{Field: "completed", Message: "completed is required", Rule: "required"}},
		})
		return
	}

	progress, err := h.progress.UpdateProgress(c.Request.Context(), user, courseID, moduleID, *req.Completed)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Ranking
// @Summary Course completion ranking
// @Tags ranking
// @Produce json
// @Success 200 {array} models.CourseRanking
// @Router /ranking [get]
func (h *LearningHandler) Ranking(c *gin.Context) {
	rankings, err := h.progress.GetRanking(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rankings)
}
