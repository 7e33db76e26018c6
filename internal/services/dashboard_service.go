package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

const (
	defaultTrendDays = 30
	maxTrendDays     = 366
)

// ===== SERVICE IMPLEMENTATION =====

type dashboardService struct {
	repo     repositories.Repository
	db       *gorm.DB
	logger   *slog.Logger
	progress ProgressService
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, progress ProgressService) DashboardService {
	return &dashboardService{
		repo:     repo,
		db:       db,
		logger:   logger,
		progress: progress,
	}
}

func (s *dashboardService) GetDashboard(ctx context.Context, user *models.User) (*models.LearnerDashboard, error) {
	s.logger.Debug("Getting dashboard", "user_id", user.ID)

	progress, err := s.progress.GetCourseProgress(ctx, user)
	if err != nil {
		return nil, err
	}

	dashboard := &models.LearnerDashboard{
		EnrolledCourses: len(progress),
		Progress:        progress,
	}

	sum := 0
	for _, p := range progress {
		sum += p.Percentage
		if p.Completed {
			dashboard.CompletedCourses++
		}
	}
	if len(progress) > 0 {
		dashboard.AverageProgress = percentage(sum, len(progress)*100)
	}

	latest, err := s.repo.Course().ListLatest(ctx, nil, defaultLatestLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest courses: %w", err)
	}
	dashboard.LatestCourses = latest

	if user.IsAdmin() {
		stats, err := s.GetAdminStats(ctx)
		if err != nil {
			return nil, err
		}
		dashboard.Admin = stats
	}
	return dashboard, nil
}

func (s *dashboardService) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	totalCourses, err := s.repo.Dashboard().GetTotalCourses(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get total courses: %w", err)
	}

	publishedCourses, err := s.repo.Dashboard().GetPublishedCourses(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get published courses: %w", err)
	}

	totalEnrollments, err := s.repo.Dashboard().GetTotalEnrollments(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get total enrollments: %w", err)
	}

	approved, revenue, err := s.repo.Dashboard().GetApprovedPayments(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get approved payments: %w", err)
	}

	return &models.AdminStats{
		TotalCourses:     totalCourses,
		PublishedCourses: publishedCourses,
		TotalEnrollments: totalEnrollments,
		ApprovedPayments: approved,
		ApprovedRevenue:  revenue,
	}, nil
}

// GetRevenueTrends returns daily approved revenue for the last days days, today included
func (s *dashboardService) GetRevenueTrends(ctx context.Context, days int) (*RevenueTrendResponse, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}

	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)

	trends, err := s.repo.Dashboard().GetRevenueTrends(ctx, nil, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get revenue trends: %w", err)
	}
	if trends == nil {
		trends = []repositories.RevenueTrendData{}
	}
	return &RevenueTrendResponse{From: from, To: to, Trends: trends}, nil
}
