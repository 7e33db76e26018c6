package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// maxUploadBody leaves room for the multipart framing around a full size image
	maxUploadBody = validator.MaxImageUploadBytes + 1<<20
	sniffLen      = 512
)

// AdminHandler serves the course authoring console and exports
type AdminHandler struct {
	BaseHandler
	admin   services.AdminService
	reports services.ReportService
}

func NewAdminHandler(admin services.AdminService, reports services.ReportService, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: NewBaseHandler(logger),
		admin:       admin,
		reports:     reports,
	}
}

// ===== COURSES =====

// ListCourses
// @Summary List every course, drafts included
// @Tags admin
// @Produce json
// @Success 200 {array} models.Course
// @Router /admin/courses [get]
func (h *AdminHandler) ListCourses(c *gin.Context) {
	courses, err := h.admin.ListCourses(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

// CreateCourse
// @Summary Create a course
// @Tags admin
// @Accept json
// @Produce json
// @Param course body services.CreateCourseRequest true "Course"
// @Success 201 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Router /admin/courses [post]
func (h *AdminHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	course, err := h.admin.CreateCourse(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

// UpdateCourse applies the fields present in the body
// @Summary Update a course
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param course body services.UpdateCourseRequest true "Fields to change"
// @Success 200 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/courses/{id} [put]
func (h *AdminHandler) UpdateCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	course, err := h.admin.UpdateCourse(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// DeleteCourse
// @Summary Delete a course and its content
// @Tags admin
// @Param id path int true "Course ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Course has payments"
// @Router /admin/courses/{id} [delete]
func (h *AdminHandler) DeleteCourse(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.admin.DeleteCourse(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPublished
// @Summary Publish or unpublish a course
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param body body validator.PublishRequest true "Published flag"
// @Success 200 {object} models.Course
// @Router /admin/courses/{id}/publish [patch]
func (h *AdminHandler) SetPublished(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req validator.PublishRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Published == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validator.ValidationErrors{{Field: "published", Message: "published is required", Rule: "required"}},
		})
		return
	}

	course, err := h.admin.SetPublished(c.Request.Context(), id, *req.Published)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// UploadImage stores a course cover and returns its public URL
// @Summary Upload a course image
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "jpeg, png, webp or gif up to 5 MB"
// @Success 201 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /admin/courses/images [post]
func (h *AdminHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.RespondWithError(c, http.StatusBadRequest, "file must be at most 5MB", err)
			return
		}
		h.RespondWithError(c, http.StatusBadRequest, "file is required", err)
		return
	}

	file, err := header.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Unreadable upload", err)
		return
	}
	defer file.Close()

	// the declared part type is client controlled, trust the bytes instead
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		h.RespondWithError(c, http.StatusBadRequest, "Unreadable upload", err)
		return
	}
	head = head[:n]

	url, err := h.admin.UploadImage(c.Request.Context(), services.ImageUpload{
		Filename:    header.Filename,
		ContentType: http.DetectContentType(head),
		Size:        header.Size,
		Body:        io.MultiReader(bytes.NewReader(head), file),
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// ===== MODULES =====

// ListModules
// @Summary Modules of a course with their sections
// @Tags admin
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {array} models.Module
// @Router /admin/courses/{id}/modules [get]
func (h *AdminHandler) ListModules(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	modules, err := h.admin.ListModules(c.Request.Context(), courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, modules)
}

// CreateModule
// @Summary Add a module to a course
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param module body services.CreateModuleRequest true "Module"
// @Success 201 {object} models.Module
// @Router /admin/courses/{id}/modules [post]
func (h *AdminHandler) CreateModule(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	var req services.CreateModuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	module, err := h.admin.CreateModule(c.Request.Context(), courseID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, module)
}

// UpdateModule
// @Summary Update a module
// @Tags admin
// @Accept json
// @Produce json
// @Param module_id path int true "Module ID"
// @Param module body services.UpdateModuleRequest true "Fields to change"
// @Success 200 {object} models.Module
// @Router /admin/modules/{module_id} [put]
func (h *AdminHandler) UpdateModule(c *gin.Context) {
	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}

	var req services.UpdateModuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	module, err := h.admin.UpdateModule(c.Request.Context(), moduleID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, module)
}

// DeleteModule
// @Summary Delete a module, its sections and progress
// @Tags admin
// @Param module_id path int true "Module ID"
// @Success 204
// @Router /admin/modules/{module_id} [delete]
func (h *AdminHandler) DeleteModule(c *gin.Context) {
	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}

	if err := h.admin.DeleteModule(c.Request.Context(), moduleID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== SECTIONS =====

// CreateSection
// @Summary Add a section to a module
// @Tags admin
// @Accept json
// @Produce json
// @Param module_id path int true "Module ID"
// @Param section body services.CreateSectionRequest true "Section"
// @Success 201 {object} models.Section
// @Router /admin/modules/{module_id}/sections [post]
func (h *AdminHandler) CreateSection(c *gin.Context) {
	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}

	var req services.CreateSectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	section, err := h.admin.CreateSection(c.Request.Context(), moduleID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, section)
}

// UpdateSection
// @Summary Update a section
// @Tags admin
// @Accept json
// @Produce json
// @Param section_id path int true "Section ID"
// @Param section body services.UpdateSectionRequest true "Fields to change"
// @Success 200 {object} models.Section
// @Router /admin/sections/{section_id} [put]
func (h *AdminHandler) UpdateSection(c *gin.Context) {
	sectionID := h.parseIDParam(c, "section_id")
	if sectionID == 0 {
		return
	}

	var req services.UpdateSectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	section, err := h.admin.UpdateSection(c.Request.Context(), sectionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, section)
}

// DeleteSection
// @Summary Delete a section
// @Tags admin
// @Param section_id path int true "Section ID"
// @Success 204
// @Router /admin/sections/{section_id} [delete]
func (h *AdminHandler) DeleteSection(c *gin.Context) {
	sectionID := h.parseIDParam(c, "section_id")
	if sectionID == 0 {
		return
	}

	if err := h.admin.DeleteSection(c.Request.Context(), sectionID); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== REPORTS =====

// parseDateQuery accepts 2006-01-02 or RFC 3339. A missing param yields nil.
func parseDateQuery(c *gin.Context, param string) (*time.Time, error) {
	raw := c.Query(param)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s must be YYYY-MM-DD or RFC 3339", param)
}

func sendWorkbook(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// PaymentsReport
// @Summary Export payments to Excel
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param from query string false "Start date, inclusive (default: 30 days ago)"
// @Param to query string false "End date, exclusive (default: now)"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Router /admin/reports/payments.xlsx [get]
func (h *AdminHandler) PaymentsReport(c *gin.Context) {
	from, err := parseDateQuery(c, "from")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid from", err)
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid to", err)
		return
	}

	data, err := h.reports.PaymentsReport(c.Request.Context(), from, to)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	sendWorkbook(c, "pagos.xlsx", data)
}

// RankingReport
// @Summary Export the ranking to Excel
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /admin/reports/ranking.xlsx [get]
func (h *AdminHandler) RankingReport(c *gin.Context) {
	data, err := h.reports.RankingReport(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	sendWorkbook(c, "ranking.xlsx", data)
}
