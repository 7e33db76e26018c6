package repositories

import (
	"context"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"gorm.io/gorm"
)

// EnrollmentRepository interface for user-course enrollments
type EnrollmentRepository interface {
	// Create inserts the enrollment unless (user, course) already exists.
	// created is false when the row was already there.
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) (created bool, err error)
	Exists(ctx context.Context, tx *gorm.DB, userID string, courseID uint) (bool, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Enrollment, error)
	ListRefs(ctx context.Context, tx *gorm.DB) ([]models.EnrollmentRef, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

// ProgressRepository interface for per-module completion flags
type ProgressRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, progress *models.UserProgress) error
	ListByUserAndCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint) ([]*models.UserProgress, error)
	// CountCompletedByCourse returns distinct completed modules per course for the user.
	CountCompletedByCourse(ctx context.Context, tx *gorm.DB, userID string, courseIDs []uint) (map[uint]int, error)
	ListRefs(ctx context.Context, tx *gorm.DB) ([]models.ProgressRef, error)
}
