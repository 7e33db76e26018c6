package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"gorm.io/gorm"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (c *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

// invalidateCourse drops cached course data for writes made outside a transaction.
// Transactional callers invalidate once the commit succeeds.
func invalidateCourse(ctx context.Context, tx *gorm.DB, cm *cache.CacheManager, courseID uint) {
	if tx != nil {
		return
	}
	cache.InvalidateCourseCache(ctx, cm, courseID)
}

func orderedModules(db *gorm.DB) *gorm.DB {
	return db.Order("modules.order_number ASC, modules.id ASC")
}

func orderedSections(db *gorm.DB) *gorm.DB {
	return db.Order("sections.order_number ASC, sections.id ASC")
}

func (c *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := c.getDB(tx).WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	invalidateCourse(ctx, tx, c.cacheManager, 0)
	return nil
}

// GetByID retrieves a course by ID with caching. Reads inside a transaction skip the cache.
func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	load := func() (*models.Course, error) {
		var dbCourse models.Course
		if err := c.getDB(tx).WithContext(ctx).First(&dbCourse, id).Error; err != nil {
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
		return &dbCourse, nil
	}
	if tx != nil {
		return load()
	}

	var course models.Course
	err := c.cacheManager.Course.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		return load()
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// GetByIDWithModules returns the course with its ordered module outline (no sections)
func (c *CoursePostgreSQL) GetByIDWithModules(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	load := func() (*models.Course, error) {
		var dbCourse models.Course
		err := c.getDB(tx).WithContext(ctx).
			Preload("Modules", orderedModules).
			First(&dbCourse, id).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get course outline: %w", err)
		}
		dbCourse.ModuleCount = len(dbCourse.Modules)
		return &dbCourse, nil
	}
	// uncommitted rows must not reach the cache
	if tx != nil {
		return load()
	}

	var course models.Course
	err := c.cacheManager.Course.CacheOrExecute(ctx, fmt.Sprintf("outline:%d", id), &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		return load()
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// GetByIDWithContent loads modules and sections, both ordered. Lesson bodies are never cached.
func (c *CoursePostgreSQL) GetByIDWithContent(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	var course models.Course
	err := c.getDB(tx).WithContext(ctx).
		Preload("Modules", orderedModules).
		Preload("Modules.Sections", orderedSections).
		First(&course, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get course content: %w", err)
	}
	course.ModuleCount = len(course.Modules)
	return &course, nil
}

func (c *CoursePostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Course, error) {
	if len(ids) == 0 {
		return []*models.Course{}, nil
	}
	var courses []*models.Course
	if err := c.getDB(tx).WithContext(ctx).Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}
	return courses, nil
}

func (c *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	result := c.getDB(tx).WithContext(ctx).
		Model(course).
		Select("title", "description", "category", "difficulty", "price", "image_url", "published").
		Updates(course)
	if result.Error != nil {
		return fmt.Errorf("failed to update course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	invalidateCourse(ctx, tx, c.cacheManager, course.ID)
	return nil
}

// Delete removes the course together with its modules, sections and module progress.
// Callers run it inside a transaction.
func (c *CoursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := c.getDB(tx).WithContext(ctx)

	moduleIDs := db.Model(&models.Module{}).Select("id").Where("course_id = ?", id)

	if err := db.Where("module_id IN (?)", moduleIDs).Delete(&models.UserProgress{}).Error; err != nil {
		return fmt.Errorf("failed to delete course progress: %w", err)
	}
	if err := db.Where("module_id IN (?)", moduleIDs).Delete(&models.Section{}).Error; err != nil {
		return fmt.Errorf("failed to delete course sections: %w", err)
	}
	if err := db.Where("course_id = ?", id).Delete(&models.Module{}).Error; err != nil {
		return fmt.Errorf("failed to delete course modules: %w", err)
	}
	if err := db.Where("course_id = ?", id).Delete(&models.Enrollment{}).Error; err != nil {
		return fmt.Errorf("failed to delete course enrollments: %w", err)
	}

	result := db.Delete(&models.Course{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	invalidateCourse(ctx, tx, c.cacheManager, id)
	return nil
}

// ===== CATALOG QUERIES =====

func (c *CoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	db := c.getDB(tx).WithContext(ctx)

	query := c.helpers.ApplyCourseFilters(db.Model(&models.Course{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	var courses []*models.Course
	query = c.helpers.ApplyCourseFilters(db.Model(&models.Course{}), filters)
	query = c.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}

	return courses, total, nil
}

func (c *CoursePostgreSQL) ListLatest(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Course, error) {
	var courses []*models.Course
	err := c.getDB(tx).WithContext(ctx).
		Where("published = ?", true).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list latest courses: %w", err)
	}
	return courses, nil
}

func (c *CoursePostgreSQL) ListCategories(ctx context.Context, tx *gorm.DB) ([]string, error) {
	var categories []string
	err := c.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("published = ? AND category <> ''", true).
		Distinct().
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (c *CoursePostgreSQL) ListPublishedForSitemap(ctx context.Context, tx *gorm.DB, limit int) ([]*models.Course, error) {
	var courses []*models.Course
	err := c.getDB(tx).WithContext(ctx).
		Select("id", "updated_at").
		Where("published = ?", true).
		Order("updated_at DESC").
		Limit(limit).
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sitemap courses: %w", err)
	}
	return courses, nil
}

func (c *CoursePostgreSQL) ListAll(ctx context.Context, tx *gorm.DB) ([]*models.Course, error) {
	var courses []*models.Course
	if err := c.getDB(tx).WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list all courses: %w", err)
	}
	return courses, nil
}

func (c *CoursePostgreSQL) Count(ctx context.Context, tx *gorm.DB, published *bool) (int64, error) {
	query := c.getDB(tx).WithContext(ctx).Model(&models.Course{})
	if published != nil {
		query = query.Where("published = ?", *published)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}
