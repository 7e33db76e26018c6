package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"gorm.io/gorm"
)

// ===== MODULES =====

type ModulePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewModulePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ModuleRepository {
	return &ModulePostgreSQL{db: db, cacheManager: cacheManager}
}

func (m *ModulePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return m.db
}

func (m *ModulePostgreSQL) Create(ctx context.Context, tx *gorm.DB, module *models.Module) error {
	if err := m.getDB(tx).WithContext(ctx).Create(module).Error; err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}
	invalidateCourse(ctx, tx, m.cacheManager, module.CourseID)
	return nil
}

func (m *ModulePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Module, error) {
	var module models.Module
	if err := m.getDB(tx).WithContext(ctx).First(&module, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	return &module, nil
}

func (m *ModulePostgreSQL) Update(ctx context.Context, tx *gorm.DB, module *models.Module) error {
	result := m.getDB(tx).WithContext(ctx).
		Model(module).
		Select("title", "order_number").
		Updates(module)
	if result.Error != nil {
		return fmt.Errorf("failed to update module: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	invalidateCourse(ctx, tx, m.cacheManager, module.CourseID)
	return nil
}

// Delete removes the module with its sections and progress rows
func (m *ModulePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := m.getDB(tx).WithContext(ctx)

	var module models.Module
	if err := db.First(&module, id).Error; err != nil {
		return fmt.Errorf("failed to get module: %w", err)
	}

	if err := db.Where("module_id = ?", id).Delete(&models.UserProgress{}).Error; err != nil {
		return fmt.Errorf("failed to delete module progress: %w", err)
	}
	if err := db.Where("module_id = ?", id).Delete(&models.Section{}).Error; err != nil {
		return fmt.Errorf("failed to delete module sections: %w", err)
	}
	if err := db.Delete(&models.Module{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}

	invalidateCourse(ctx, tx, m.cacheManager, module.CourseID)
	return nil
}

func (m *ModulePostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Module, error) {
	var modules []*models.Module
	err := m.getDB(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("order_number ASC, id ASC").
		Find(&modules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return modules, nil
}

func (m *ModulePostgreSQL) ListByCourseWithSections(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Module, error) {
	var modules []*models.Module
	err := m.getDB(tx).WithContext(ctx).
		Preload("Sections", orderedSections).
		Where("course_id = ?", courseID).
		Order("order_number ASC, id ASC").
		Find(&modules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list modules with sections: %w", err)
	}
	return modules, nil
}

func (m *ModulePostgreSQL) CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	var count int64
	err := m.getDB(tx).WithContext(ctx).
		Model(&models.Module{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count modules: %w", err)
	}
	return count, nil
}

func (m *ModulePostgreSQL) CountByCourses(ctx context.Context, tx *gorm.DB, courseIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CourseID uint
		Total    int
	}
	err := m.getDB(tx).WithContext(ctx).
		Model(&models.Module{}).
		Select("course_id, COUNT(*) AS total").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count modules by course: %w", err)
	}

	for _, row := range rows {
		counts[row.CourseID] = row.Total
	}
	return counts, nil
}

func (m *ModulePostgreSQL) ListRefs(ctx context.Context, tx *gorm.DB) ([]models.ModuleRef, error) {
	var refs []models.ModuleRef
	err := m.getDB(tx).WithContext(ctx).
		Model(&models.Module{}).
		Select("id, course_id").
		Scan(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list module refs: %w", err)
	}
	return refs, nil
}

// ===== SECTIONS =====

type SectionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSectionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.SectionRepository {
	return &SectionPostgreSQL{db: db, cacheManager: cacheManager}
}

func (s *SectionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *SectionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, section *models.Section) error {
	if err := s.getDB(tx).WithContext(ctx).Create(section).Error; err != nil {
		return fmt.Errorf("failed to create section: %w", err)
	}
	invalidateCourse(ctx, tx, s.cacheManager, 0)
	return nil
}

func (s *SectionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Section, error) {
	var section models.Section
	if err := s.getDB(tx).WithContext(ctx).First(&section, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get section: %w", err)
	}
	return &section, nil
}

func (s *SectionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, section *models.Section) error {
	result := s.getDB(tx).WithContext(ctx).
		Model(section).
		Select("title", "content", "order_number").
		Updates(section)
	if result.Error != nil {
		return fmt.Errorf("failed to update section: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	invalidateCourse(ctx, tx, s.cacheManager, 0)
	return nil
}

func (s *SectionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	result := s.getDB(tx).WithContext(ctx).Delete(&models.Section{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete section: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	invalidateCourse(ctx, tx, s.cacheManager, 0)
	return nil
}

func (s *SectionPostgreSQL) ListByModule(ctx context.Context, tx *gorm.DB, moduleID uint) ([]*models.Section, error) {
	var sections []*models.Section
	err := s.getDB(tx).WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order("order_number ASC, id ASC").
		Find(&sections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return sections, nil
}

func (s *SectionPostgreSQL) CountByModule(ctx context.Context, tx *gorm.DB, moduleID uint) (int64, error) {
	var count int64
	err := s.getDB(tx).WithContext(ctx).
		Model(&models.Section{}).
		Where("module_id = ?", moduleID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sections: %w", err)
	}
	return count, nil
}
