package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

// CourseHandler serves the public catalog and free enrollment
type CourseHandler struct {
	BaseHandler
	courses     services.CourseService
	enrollments services.EnrollmentService
}

func NewCourseHandler(courses services.CourseService, enrollments services.EnrollmentService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler: NewBaseHandler(logger),
		courses:     courses,
		enrollments: enrollments,
	}
}

// ListCourses
// @Summary List published courses
// @Tags courses
// @Produce json
// @Param category query string false "Category"
// @Param difficulty query string false "beginner, intermediate or advanced"
// @Param min_price query number false "Minimum price"
// @Param max_price query number false "Maximum price"
// @Param q query string false "Search in title and description"
// @Param page query int false "Page (default 1)"
// @Param size query int false "Page size (default 12)"
// @Param sort_by query string false "created_at, price or title"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} services.CourseListResponse
// @Failure 400 {object} ErrorResponse
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var query services.CourseListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	resp, err := h.courses.List(c.Request.Context(), &query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LatestCourses
// @Summary Newest published courses
// @Tags courses
// @Produce json
// @Param limit query int false "Number of courses (default 6, max 24)"
// @Success 200 {array} models.Course
// @Router /courses/latest [get]
func (h *CourseHandler) LatestCourses(c *gin.Context) {
	courses, err := h.courses.Latest(c.Request.Context(), h.parseIntQuery(c, "limit", 0))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

// Categories
// @Summary Categories of published courses
// @Tags courses
// @Produce json
// @Success 200 {array} string
// @Router /courses/categories [get]
func (h *CourseHandler) Categories(c *gin.Context) {
	categories, err := h.courses.Categories(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCourse returns the course outline, with is_enrolled for signed-in callers
// @Summary Get a course
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} services.CourseDetailResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	// optional auth, viewer stays nil for anonymous callers
	viewer, _ := GetUserFromContext(c)

	course, err := h.courses.GetByID(c.Request.Context(), id, viewer)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// Enroll
// @Summary Enroll in a free course
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 201 {object} services.EnrollResponse
// @Success 200 {object} services.EnrollResponse "Already enrolled"
// @Failure 402 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/enroll [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Enrolling", "course_id", id, "user_id", user.ID)

	resp, err := h.enrollments.Enroll(c.Request.Context(), user, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.AlreadyEnrolled {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}
