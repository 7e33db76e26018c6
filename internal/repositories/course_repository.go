package repositories

import (
	"context"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"gorm.io/gorm"
)

// CourseRepository interface for course catalog operations
type CourseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	GetByIDWithModules(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	GetByIDWithContent(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Course, error)
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Catalog queries
	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)
	ListLatest(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Course, error)
	ListCategories(ctx context.Context, tx *gorm.DB) ([]string, error)
	ListPublishedForSitemap(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Course, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*models.Course, error)

	// Stats
	Count(ctx context.Context, tx *gorm.DB, published *bool) (int64, error)
}

// ModuleRepository interface for course modules
type ModuleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, module *models.Module) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Module, error)
	Update(ctx context.Context, tx *gorm.DB, module *models.Module) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Module, error)
	ListByCourseWithSections(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Module, error)
	CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error)
	CountByCourses(ctx context.Context, tx *gorm.DB, courseIDs []uint) (map[uint]int, error)
	ListRefs(ctx context.Context, tx *gorm.DB) ([]models.ModuleRef, error)
}

// SectionRepository interface for lesson sections
type SectionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, section *models.Section) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Section, error)
	Update(ctx context.Context, tx *gorm.DB, section *models.Section) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	ListByModule(ctx context.Context, tx *gorm.DB, moduleID uint) ([]*models.Section, error)
	CountByModule(ctx context.Context, tx *gorm.DB, moduleID uint) (int64, error)
}
