package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DashboardRepository interface for admin dashboard and report aggregates
type DashboardRepository interface {
	GetTotalCourses(ctx context.Context, tx *gorm.DB) (int64, error)
	GetPublishedCourses(ctx context.Context, tx *gorm.DB) (int64, error)
	GetTotalEnrollments(ctx context.Context, tx *gorm.DB) (int64, error)
	GetApprovedPayments(ctx context.Context, tx *gorm.DB) (int64, float64, error)

	// Revenue per day for approved payments in [from, to)
	GetRevenueTrends(ctx context.Context, tx *gorm.DB, from, to time.Time) ([]RevenueTrendData, error)
}

type RevenueTrendData struct {
	Date     string  `json:"date"`
	Payments int64   `json:"payments"`
	Revenue  float64 `json:"revenue"`
}
