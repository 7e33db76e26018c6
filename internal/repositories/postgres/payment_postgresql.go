package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewPaymentPostgreSQL(db *gorm.DB) repositories.PaymentRepository {
	return &PaymentPostgreSQL{db: db, helpers: NewSharedHelpers(db)}
}

func (p *PaymentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return p.db
}

// Create is idempotent on mp_payment_id. A replayed notification reports created=false.
func (p *PaymentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) (bool, error) {
	result := p.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mp_payment_id"}},
			DoNothing: true,
		}).
		Create(payment)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create payment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (p *PaymentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := p.getDB(tx).WithContext(ctx).Preload("Course").First(&payment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (p *PaymentPostgreSQL) GetByProviderID(ctx context.Context, tx *gorm.DB, mpPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := p.getDB(tx).WithContext(ctx).
		Preload("Course").
		Where("mp_payment_id = ?", mpPaymentID).
		First(&payment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by provider id: %w", err)
	}
	return &payment, nil
}

func (p *PaymentPostgreSQL) GetByProviderIDForUser(ctx context.Context, tx *gorm.DB, mpPaymentID, userID string) (*models.Payment, error) {
	var payment models.Payment
	err := p.getDB(tx).WithContext(ctx).
		Preload("Course").
		Where("mp_payment_id = ? AND user_id = ?", mpPaymentID, userID).
		First(&payment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get payment for user: %w", err)
	}
	return &payment, nil
}

func (p *PaymentPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := p.getDB(tx).WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("paid_at DESC").Order("id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user payments: %w", err)
	}
	return payments, nil
}

func (p *PaymentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.PaymentFilters) ([]*models.Payment, int64, error) {
	db := p.getDB(tx).WithContext(ctx)

	var total int64
	if err := p.helpers.ApplyPaymentFilters(db.Model(&models.Payment{}), filters).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	var payments []*models.Payment
	query := p.helpers.ApplyPaymentFilters(db.Model(&models.Payment{}), filters).Preload("Course")
	query = p.helpers.ApplyPaginationAndSort(query, "paid_at", "desc", filters.Limit, filters.Offset)
	if err := query.Find(&payments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, total, nil
}

// ListPendingInvoices returns approved payments whose invoice was never sent
func (p *PaymentPostgreSQL) ListPendingInvoices(ctx context.Context, tx *gorm.DB, olderThan time.Time, limit int) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := p.getDB(tx).WithContext(ctx).
		Preload("Course").
		Where("status = ? AND invoice_sent_at IS NULL AND created_at < ?", models.PaymentApproved, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invoices: %w", err)
	}
	return payments, nil
}

func (p *PaymentPostgreSQL) MarkInvoiceSent(ctx context.Context, tx *gorm.DB, id uint, at time.Time) error {
	result := p.getDB(tx).WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Update("invoice_sent_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to mark invoice sent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (p *PaymentPostgreSQL) ExistsForCourse(ctx context.Context, tx *gorm.DB, courseID uint) (bool, error) {
	var count int64
	err := p.getDB(tx).WithContext(ctx).
		Model(&models.Payment{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check course payments: %w", err)
	}
	return count > 0, nil
}
