package services

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/storage"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

// AdminConfig names where uploaded images go
type AdminConfig struct {
	ImagesBucket string
	// PublicURL prefixes stored objects; images under it are removed with their course
	PublicURL string
}

type adminService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	storage   storage.ObjectStorage
	cache     *cache.CacheManager
	config    AdminConfig
}

func NewAdminService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, objects storage.ObjectStorage, cacheManager *cache.CacheManager, config AdminConfig) AdminService {
	return &adminService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		storage:   objects,
		cache:     cacheManager,
		config:    config,
	}
}

// ===== COURSES =====

func (s *adminService) ListCourses(ctx context.Context) ([]*models.Course, error) {
	courses, err := s.repo.Course().ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	if len(courses) == 0 {
		return []*models.Course{}, nil
	}

	ids := make([]uint, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	counts, err := s.repo.Module().CountByCourses(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count modules: %w", err)
	}
	for _, c := range courses {
		c.ModuleCount = counts[c.ID]
	}
	return courses, nil
}

func (s *adminService) CreateCourse(ctx context.Context, req *CreateCourseRequest) (*models.Course, error) {
	if errs := s.validator.GetBusinessValidator().ValidateCourseCreate(req); len(errs) > 0 {
		return nil, errs
	}

	course := &models.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    strings.TrimSpace(req.Category),
		Difficulty:  req.Difficulty,
		Price:       req.Price,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Published:   req.Published,
	}
	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created", "course_id", course.ID, "title", course.Title)
	return course, nil
}

func (s *adminService) UpdateCourse(ctx context.Context, id uint, req *UpdateCourseRequest) (*models.Course, error) {
	if errs := s.validator.GetBusinessValidator().ValidateCourseUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "failed to get course")
	}

	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		course.Category = strings.TrimSpace(*req.Category)
	}
	if req.Difficulty != nil {
		course.Difficulty = *req.Difficulty
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.ImageURL != nil {
		course.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	if req.Published != nil {
		course.Published = *req.Published
	}

	if err := s.repo.Course().Update(ctx, nil, course); err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "failed to update course")
	}

	s.logger.Info("Course updated", "course_id", course.ID)
	return course, nil
}

// DeleteCourse removes a course with its content. Courses that were sold are kept.
func (s *adminService) DeleteCourse(ctx context.Context, id uint) error {
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return mapNotFound(err, ErrCourseNotFound, "failed to get course")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sold, err := s.repo.Payment().ExistsForCourse(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to check payments: %w", err)
		}
		if sold {
			return ErrCourseHasPayments
		}
		return s.repo.Course().Delete(ctx, tx, id)
	})
	if err != nil {
		return mapNotFound(err, ErrCourseNotFound, "failed to delete course")
	}
	cache.InvalidateCourseCache(ctx, s.cache, id)

	s.removeImage(ctx, course.ImageURL)
	s.logger.Info("Course deleted", "course_id", id)
	return nil
}

// removeImage deletes an uploaded course image. URLs outside our storage are left alone.
func (s *adminService) removeImage(ctx context.Context, imageURL string) {
	prefix := strings.TrimRight(s.config.PublicURL, "/") + "/" + s.config.ImagesBucket + "/"
	if s.config.PublicURL == "" || !strings.HasPrefix(imageURL, prefix) {
		return
	}
	name := strings.TrimPrefix(imageURL, prefix)
	if err := s.storage.Delete(ctx, s.config.ImagesBucket, name); err != nil {
		s.logger.Warn("Failed to delete course image", "name", name, "error", err)
	}
}

func (s *adminService) SetPublished(ctx context.Context, id uint, published bool) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "failed to get course")
	}
	if course.Published == published {
		return course, nil
	}

	course.Published = published
	if err := s.repo.Course().Update(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	s.logger.Info("Course publication changed", "course_id", id, "published", published)
	return course, nil
}

func (s *adminService) UploadImage(ctx context.Context, upload ImageUpload) (string, error) {
	if errs := s.validator.GetBusinessValidator().ValidateImageUpload(upload.ContentType, upload.Size); len(errs) > 0 {
		return "", errs
	}

	mediaType, _, err := mime.ParseMediaType(upload.ContentType)
	if err != nil {
		mediaType = upload.ContentType
	}
	mediaType = strings.ToLower(mediaType)
	name := uuid.NewString() + validator.AllowedImageTypes[mediaType]

	url, err := s.storage.Put(ctx, s.config.ImagesBucket, name, mediaType, upload.Body)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	s.logger.Info("Course image uploaded", "name", name, "size", upload.Size, "original", upload.Filename)
	return url, nil
}

// ===== MODULES =====

func (s *adminService) ListModules(ctx context.Context, courseID uint) ([]*models.Module, error) {
	if _, err := s.repo.Course().GetByID(ctx, nil, courseID); err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "failed to get course")
	}
	modules, err := s.repo.Module().ListByCourseWithSections(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	if modules == nil {
		modules = []*models.Module{}
	}
	return modules, nil
}

func (s *adminService) CreateModule(ctx context.Context, courseID uint, req *CreateModuleRequest) (*models.Module, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.repo.Course().GetByID(ctx, nil, courseID); err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "failed to get course")
	}

	module := &models.Module{
		CourseID: courseID,
		Title:    strings.TrimSpace(req.Title),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.OrderNumber != nil {
			module.OrderNumber = *req.OrderNumber
		} else {
			count, err := s.repo.Module().CountByCourse(ctx, tx, courseID)
			if err != nil {
				return fmt.Errorf("failed to count modules: %w", err)
			}
			module.OrderNumber = int(count) + 1
		}
		return s.repo.Module().Create(ctx, tx, module)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	cache.InvalidateCourseCache(ctx, s.cache, courseID)

	s.logger.Info("Module created", "module_id", module.ID, "course_id", courseID)
	return module, nil
}

func (s *adminService) UpdateModule(ctx context.Context, moduleID uint, req *UpdateModuleRequest) (*models.Module, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	module, err := s.repo.Module().GetByID(ctx, nil, moduleID)
	if err != nil {
		return nil, mapNotFound(err, ErrModuleNotFound, "failed to get module")
	}
	if req.Title != nil {
		module.Title = strings.TrimSpace(*req.Title)
	}
	if req.OrderNumber != nil {
		module.OrderNumber = *req.OrderNumber
	}

	if err := s.repo.Module().Update(ctx, nil, module); err != nil {
		return nil, mapNotFound(err, ErrModuleNotFound, "failed to update module")
	}
	return module, nil
}

func (s *adminService) DeleteModule(ctx context.Context, moduleID uint) error {
	var courseID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		module, err := s.repo.Module().GetByID(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		courseID = module.CourseID
		return s.repo.Module().Delete(ctx, tx, moduleID)
	})
	if err != nil {
		return mapNotFound(err, ErrModuleNotFound, "failed to delete module")
	}
	cache.InvalidateCourseCache(ctx, s.cache, courseID)
	s.logger.Info("Module deleted", "module_id", moduleID)
	return nil
}

// ===== SECTIONS =====

func (s *adminService) CreateSection(ctx context.Context, moduleID uint, req *CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	module, err := s.repo.Module().GetByID(ctx, nil, moduleID)
	if err != nil {
		return nil, mapNotFound(err, ErrModuleNotFound, "failed to get module")
	}

	section := &models.Section{
		ModuleID: moduleID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.OrderNumber != nil {
			section.OrderNumber = *req.OrderNumber
		} else {
			count, err := s.repo.Section().CountByModule(ctx, tx, moduleID)
			if err != nil {
				return fmt.Errorf("failed to count sections: %w", err)
			}
			section.OrderNumber = int(count) + 1
		}
		return s.repo.Section().Create(ctx, tx, section)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create section: %w", err)
	}
	cache.InvalidateCourseCache(ctx, s.cache, module.CourseID)

	s.logger.Info("Section created", "section_id", section.ID, "module_id", moduleID)
	return section, nil
}

func (s *adminService) UpdateSection(ctx context.Context, sectionID uint, req *UpdateSectionRequest) (*models.Section, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	section, err := s.repo.Section().GetByID(ctx, nil, sectionID)
	if err != nil {
		return nil, mapNotFound(err, ErrSectionNotFound, "failed to get section")
	}
	if req.Title != nil {
		section.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		section.Content = *req.Content
	}
	if req.OrderNumber != nil {
		section.OrderNumber = *req.OrderNumber
	}

	if err := s.repo.Section().Update(ctx, nil, section); err != nil {
		return nil, mapNotFound(err, ErrSectionNotFound, "failed to update section")
	}
	return section, nil
}

func (s *adminService) DeleteSection(ctx context.Context, sectionID uint) error {
	if err := s.repo.Section().Delete(ctx, nil, sectionID); err != nil {
		return mapNotFound(err, ErrSectionNotFound, "failed to delete section")
	}
	return nil
}
