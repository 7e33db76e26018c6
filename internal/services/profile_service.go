package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type profileService struct {
	repo     repositories.Repository
	db       *gorm.DB
	logger   *slog.Logger
	progress ProgressService
}

func NewProfileService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, progress ProgressService) ProfileService {
	return &profileService{
		repo:     repo,
		db:       db,
		logger:   logger,
		progress: progress,
	}
}

func (s *profileService) GetProfile(ctx context.Context, user *models.User) (*models.Profile, error) {
	account, err := s.repo.User().GetByID(ctx, user.ID)
	if err != nil {
		// the session already carries the basics
		s.logger.Warn("Failed to refresh profile user, using session data", "user_id", user.ID, "error", err)
		account = user
	}

	progress, err := s.progress.GetCourseProgress(ctx, user)
	if err != nil {
		return nil, err
	}

	payments, err := s.GetPayments(ctx, user)
	if err != nil {
		return nil, err
	}

	return &models.Profile{
		User:     account,
		Progress: progress,
		Payments: payments,
	}, nil
}

// GetPayments lists the user's payments, latest first
func (s *profileService) GetPayments(ctx context.Context, user *models.User) ([]*models.Payment, error) {
	payments, err := s.repo.Payment().ListByUser(ctx, nil, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return payments, nil
}
