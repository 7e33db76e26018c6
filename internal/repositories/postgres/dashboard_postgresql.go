package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"gorm.io/gorm"
)

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) repositories.DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ===== DASHBOARD STATS =====

func (r *dashboardRepository) GetTotalCourses(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).Model(&models.Course{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total courses: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) GetPublishedCourses(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("published = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get published courses: %w", err)
	}
	return count, nil
}

func (r *dashboardRepository) GetTotalEnrollments(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).Model(&models.Enrollment{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total enrollments: %w", err)
	}
	return count, nil
}

// GetApprovedPayments returns the number and the summed amount of approved payments
func (r *dashboardRepository) GetApprovedPayments(ctx context.Context, tx *gorm.DB) (int64, float64, error) {
	var row struct {
		Total   int64
		Revenue float64
	}
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Payment{}).
		Select("COUNT(*) AS total, COALESCE(SUM(amount), 0) AS revenue").
		Where("status = ?", models.PaymentApproved).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get approved payments: %w", err)
	}
	return row.Total, row.Revenue, nil
}

// ===== TRENDS =====

func (r *dashboardRepository) GetRevenueTrends(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]repositories.RevenueTrendData, error) {
	var payments []struct {
		Amount float64
		PaidAt time.Time
	}
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.Payment{}).
		Select("amount, paid_at").
		Where("status = ? AND paid_at >= ? AND paid_at < ?", models.PaymentApproved, from, to).
		Order("paid_at ASC").
		Scan(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get revenue trends: %w", err)
	}

	// Bucketed in Go so the same query runs on postgres and sqlite
	trends := make([]repositories.RevenueTrendData, 0)
	index := make(map[string]int)
	for _, p := range payments {
		day := p.PaidAt.UTC().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			trends = append(trends, repositories.RevenueTrendData{Date: day})
			i = len(trends) - 1
			index[day] = i
		}
		trends[i].Payments++
		trends[i].Revenue += p.Amount
	}
	return trends, nil
}
