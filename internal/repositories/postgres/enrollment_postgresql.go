package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ===== ENROLLMENTS =====

type EnrollmentPostgreSQL struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{db: db}
}

func (e *EnrollmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

// Create relies on the (user_id, course_id) unique index, so concurrent enrollments collapse to one row.
func (e *EnrollmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) (bool, error) {
	result := e.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(enrollment)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create enrollment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (e *EnrollmentPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, userID string, courseID uint) (bool, error) {
	var count int64
	err := e.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}

// ListByUser returns enrollments with their course, newest enrollment first
func (e *EnrollmentPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Enrollment, error) {
	var enrollments []*models.Enrollment
	err := e.getDB(tx).WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

func (e *EnrollmentPostgreSQL) ListRefs(ctx context.Context, tx *gorm.DB) ([]models.EnrollmentRef, error) {
	var refs []models.EnrollmentRef
	err := e.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Select("user_id, course_id").
		Scan(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollment refs: %w", err)
	}
	return refs, nil
}

func (e *EnrollmentPostgreSQL) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := e.getDB(tx).WithContext(ctx).Model(&models.Enrollment{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

// ===== PROGRESS =====

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

func (p *ProgressPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

// Upsert writes the completion flag for (user, module). completed_at follows the flag.
func (p *ProgressPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, progress *models.UserProgress) error {
	now := time.Now().UTC()
	progress.UpdatedAt = now
	if progress.Completed {
		if progress.CompletedAt == nil {
			progress.CompletedAt = &now
		}
	} else {
		progress.CompletedAt = nil
	}

	err := p.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed", "completed_at", "updated_at"}),
		}).
		Create(progress).Error
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

func (p *ProgressPostgreSQL) ListByUserAndCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint) ([]*models.UserProgress, error) {
	var rows []*models.UserProgress
	err := p.getDB(tx).WithContext(ctx).
		Joins("JOIN modules ON modules.id = user_progress.module_id").
		Where("user_progress.user_id = ? AND modules.course_id = ?", userID, courseID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return rows, nil
}

func (p *ProgressPostgreSQL) CountCompletedByCourse(ctx context.Context, tx *gorm.DB, userID string, courseIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CourseID  uint
		Completed int
	}
	err := p.getDB(tx).WithContext(ctx).
		Table("user_progress").
		Select("modules.course_id AS course_id, COUNT(DISTINCT user_progress.module_id) AS completed").
		Joins("JOIN modules ON modules.id = user_progress.module_id").
		Where("user_progress.user_id = ? AND user_progress.completed = ? AND modules.course_id IN ?", userID, true, courseIDs).
		Group("modules.course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count completed modules: %w", err)
	}

	for _, row := range rows {
		counts[row.CourseID] = row.Completed
	}
	return counts, nil
}

func (p *ProgressPostgreSQL) ListRefs(ctx context.Context, tx *gorm.DB) ([]models.ProgressRef, error) {
	var refs []models.ProgressRef
	err := p.getDB(tx).WithContext(ctx).
		Model(&models.UserProgress{}).
		Select("user_id, module_id, completed").
		Scan(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list progress refs: %w", err)
	}
	return refs, nil
}
