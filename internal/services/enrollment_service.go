package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/metrics"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type enrollmentService struct {
	repo    repositories.Repository
	db      *gorm.DB
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewEnrollmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, m *metrics.Metrics) EnrollmentService {
	return &enrollmentService{
		repo:    repo,
		db:      db,
		logger:  logger,
		metrics: m,
	}
}

// Enroll gives free access to a published course. Paid courses are only
// granted this way to admins.
func (s *enrollmentService) Enroll(ctx context.Context, user *models.User, courseID uint) (*EnrollResponse, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "failed to get course")
	}
	if !course.Published {
		return nil, ErrCourseNotFound
	}

	enrolled, err := s.repo.Enrollment().Exists(ctx, nil, user.ID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return &EnrollResponse{Enrolled: true, AlreadyEnrolled: true, Message: "already enrolled"}, nil
	}

	source := models.EnrollmentFree
	if !course.IsFree() {
		if !user.IsAdmin() {
			return nil, ErrPaymentRequired
		}
		source = models.EnrollmentAdmin
	}

	var created bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.EnsureEnrollment(ctx, tx, user.ID, courseID, source)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !created {
		return &EnrollResponse{Enrolled: true, AlreadyEnrolled: true, Message: "already enrolled"}, nil
	}

	s.logger.Info("User enrolled", "user_id", user.ID, "course_id", courseID, "source", source)
	return &EnrollResponse{Enrolled: true, Message: "enrolled"}, nil
}

func (s *enrollmentService) EnsureEnrollment(ctx context.Context, tx *gorm.DB, userID string, courseID uint, source models.EnrollmentSource) (bool, error) {
	created, err := s.repo.Enrollment().Create(ctx, tx, &models.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Source:   source,
	})
	if err != nil {
		return false, fmt.Errorf("failed to create enrollment: %w", err)
	}
	if created {
		s.metrics.EnrollmentCreated(string(source))
	}
	return created, nil
}

func (s *enrollmentService) IsEnrolled(ctx context.Context, userID string, courseID uint) (bool, error) {
	enrolled, err := s.repo.Enrollment().Exists(ctx, nil, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return enrolled, nil
}

// ListMyCourses returns the user's enrollments, newest first
func (s *enrollmentService) ListMyCourses(ctx context.Context, user *models.User) ([]*models.Enrollment, error) {
	enrollments, err := s.repo.Enrollment().ListByUser(ctx, nil, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	if enrollments == nil {
		enrollments = []*models.Enrollment{}
	}
	return enrollments, nil
}
