package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"gorm.io/gorm"
)

// PaymentRepository interface for processed provider payments
type PaymentRepository interface {
	// Create inserts the payment unless mp_payment_id was already recorded.
	Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) (created bool, err error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Payment, error)
	GetByProviderID(ctx context.Context, tx *gorm.DB, mpPaymentID string) (*models.Payment, error)
	GetByProviderIDForUser(ctx context.Context, tx *gorm.DB, mpPaymentID, userID string) (*models.Payment, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Payment, error)
	List(ctx context.Context, tx *gorm.DB, filters PaymentFilters) ([]*models.Payment, int64, error)
	ListPendingInvoices(ctx context.Context, tx *gorm.DB, olderThan time.Time, limit int) ([]*models.Payment, error)
	MarkInvoiceSent(ctx context.Context, tx *gorm.DB, id uint, at time.Time) error
	ExistsForCourse(ctx context.Context, tx *gorm.DB, courseID uint) (bool, error)
}
