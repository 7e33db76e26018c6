package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

const rankingCacheKey = "all"

type progressService struct {
	repo         repositories.Repository
	db           *gorm.DB
	logger       *slog.Logger
	cacheManager *cache.CacheManager
}

func NewProgressService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, cacheManager *cache.CacheManager) ProgressService {
	return &progressService{
		repo:         repo,
		db:           db,
		logger:       logger,
		cacheManager: cacheManager,
	}
}

func (s *progressService) UpdateProgress(ctx context.Context, user *models.User, courseID, moduleID uint, completed bool) (*models.CourseProgress, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "failed to get course")
	}

	if !user.IsAdmin() {
		enrolled, err := s.repo.Enrollment().Exists(ctx, nil, user.ID, courseID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if !enrolled {
			return nil, ErrNotEnrolled
		}
	}

	module, err := s.repo.Module().GetByID(ctx, nil, moduleID)
	if err != nil {
		return nil, mapNotFound(err, ErrModuleNotFound, "failed to get module")
	}
	if module.CourseID != courseID {
		return nil, ErrModuleNotFound
	}

	row := &models.UserProgress{
		UserID:    user.ID,
		ModuleID:  moduleID,
		Completed: completed,
	}
	if completed {
		now := time.Now().UTC()
		row.CompletedAt = &now
	}
	if err := s.repo.Progress().Upsert(ctx, nil, row); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	cache.InvalidateRankingCache(ctx, s.cacheManager)

	s.logger.Info("Module progress updated",
		"user_id", user.ID,
		"course_id", courseID,
		"module_id", moduleID,
		"completed", completed)

	progress, err := s.progressFor(ctx, user.ID, []*models.Course{course})
	if err != nil {
		return nil, err
	}
	return &progress[0], nil
}

// GetCourseProgress lists progress over the user's enrolled courses, or over every course for admins
func (s *progressService) GetCourseProgress(ctx context.Context, user *models.User) ([]models.CourseProgress, error) {
	var courses []*models.Course
	if user.IsAdmin() {
		all, err := s.repo.Course().ListAll(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list courses: %w", err)
		}
		courses = all
	} else {
		enrollments, err := s.repo.Enrollment().ListByUser(ctx, nil, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list enrollments: %w", err)
		}
		for _, e := range enrollments {
			if e.Course != nil {
				courses = append(courses, e.Course)
			}
		}
	}
	return s.progressFor(ctx, user.ID, courses)
}

func (s *progressService) progressFor(ctx context.Context, userID string, courses []*models.Course) ([]models.CourseProgress, error) {
	result := make([]models.CourseProgress, 0, len(courses))
	if len(courses) == 0 {
		return result, nil
	}

	ids := make([]uint, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}

	totals, err := s.repo.Module().CountByCourses(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count modules: %w", err)
	}
	completed, err := s.repo.Progress().CountCompletedByCourse(ctx, nil, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed modules: %w", err)
	}

	for _, c := range courses {
		result = append(result, courseProgress(c, totals[c.ID], completed[c.ID]))
	}
	return result, nil
}

func (s *progressService) GetRanking(ctx context.Context) ([]models.CourseRanking, error) {
	var rankings []models.CourseRanking
	err := s.cacheManager.Ranking.CacheOrExecute(ctx, rankingCacheKey, &rankings, cache.RankingCacheConfig.TTL, func() (interface{}, error) {
		return s.computeRanking(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ranking: %w", err)
	}
	if rankings == nil {
		rankings = []models.CourseRanking{}
	}
	return rankings, nil
}

// RefreshRanking recomputes the ranking and replaces the cached copy
func (s *progressService) RefreshRanking(ctx context.Context) error {
	rankings, err := s.computeRanking(ctx)
	if err != nil {
		return err
	}
	if err := s.cacheManager.Ranking.Set(ctx, rankingCacheKey, rankings, cache.RankingCacheConfig.TTL); err != nil {
		return fmt.Errorf("failed to cache ranking: %w", err)
	}
	s.logger.Debug("Ranking refreshed", "courses", len(rankings))
	return nil
}

func (s *progressService) computeRanking(ctx context.Context) ([]models.CourseRanking, error) {
	courses, err := s.repo.Course().ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	published := courses[:0:0]
	for _, c := range courses {
		if c.Published {
			published = append(published, c)
		}
	}

	modules, err := s.repo.Module().ListRefs(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	progress, err := s.repo.Progress().ListRefs(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	enrollments, err := s.repo.Enrollment().ListRefs(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return ComputeRanking(repositories.RankingSource{
		Courses:     published,
		Modules:     modules,
		Progress:    progress,
		Enrollments: enrollments,
	}), nil
}
