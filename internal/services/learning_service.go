package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type learningService struct {
	repo     repositories.Repository
	db       *gorm.DB
	logger   *slog.Logger
	markdown MarkdownRenderer
}

func NewLearningService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, markdown MarkdownRenderer) LearningService {
	return &learningService{
		repo:     repo,
		db:       db,
		logger:   logger,
		markdown: markdown,
	}
}

// GetCoursePlayer returns the full course content for an enrolled user or an admin
func (s *learningService) GetCoursePlayer(ctx context.Context, user *models.User, courseID uint) (*CoursePlayerResponse, error) {
	if !user.IsAdmin() {
		enrolled, err := s.repo.Enrollment().Exists(ctx, nil, user.ID, courseID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if !enrolled {
			return nil, ErrNotEnrolled
		}
	}

	course, err := s.repo.Course().GetByIDWithContent(ctx, nil, courseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "failed to get course content")
	}

	for i := range course.Modules {
		for j := range course.Modules[i].Sections {
			section := &course.Modules[i].Sections[j]
			html, err := s.markdown.Render(section.Content)
			if err != nil {
				s.logger.Warn("Failed to render section", "section_id", section.ID, "error", err)
				continue
			}
			section.ContentHTML = html
		}
	}
	course.ModuleCount = len(course.Modules)

	rows, err := s.repo.Progress().ListByUserAndCourse(ctx, nil, user.ID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	done := make([]uint, 0, len(rows))
	for _, row := range rows {
		if row.Completed {
			done = append(done, row.ModuleID)
		}
	}

	return &CoursePlayerResponse{
		Course:           course,
		CompletedModules: done,
		Progress:         courseProgress(course, len(course.Modules), len(done)),
	}, nil
}
