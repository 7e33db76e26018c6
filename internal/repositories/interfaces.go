package repositories

import (
	"time"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type CourseFilters struct {
	Published  *bool              `json:"published"`
	Category   *string            `json:"category"`
	Difficulty *models.Difficulty `json:"difficulty"`
	MinPrice   *float64           `json:"min_price"`
	MaxPrice   *float64           `json:"max_price"`
	Query      string             `json:"q"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
	SortBy     string             `json:"sort_by"`    // "created_at", "price", "title"
	SortOrder  string             `json:"sort_order"` // "asc", "desc"
}

type PaymentFilters struct {
	UserID   *string               `json:"user_id"`
	CourseID *uint                 `json:"course_id"`
	Status   *models.PaymentStatus `json:"status"`
	DateFrom *time.Time            `json:"date_from"`
	DateTo   *time.Time            `json:"date_to"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

// RankingSource holds the rows the ranking is reduced from.
type RankingSource struct {
	Courses     []*models.Course
	Modules     []models.ModuleRef
	Progress    []models.ProgressRef
	Enrollments []models.EnrollmentRef
}
