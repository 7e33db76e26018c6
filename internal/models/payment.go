package models

import (
	"time"

	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentApproved   PaymentStatus = "approved"
	PaymentPending    PaymentStatus = "pending"
	PaymentInProcess  PaymentStatus = "in_process"
	PaymentRejected   PaymentStatus = "rejected"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentChargeback PaymentStatus = "charged_back"
)

// Payment is a provider payment that was processed for a course purchase.
type Payment struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	UserID        string        `json:"user_id" gorm:"not null;size:255;index"`
	CourseID      uint          `json:"course_id" gorm:"not null;index"`
	MPPaymentID   string        `json:"mp_payment_id" gorm:"column:mp_payment_id;not null;size:64;uniqueIndex"`
	Amount        float64       `json:"amount" gorm:"not null"`
	Currency      string        `json:"currency" gorm:"size:10"`
	Status        PaymentStatus `json:"status" gorm:"size:20;index"`
	PayerEmail    string        `json:"payer_email" gorm:"size:255"`
	PaidAt        time.Time     `json:"paid_at" gorm:"index"`
	InvoiceSentAt *time.Time    `json:"invoice_sent_at"`

	RawPayload datatypes.JSON `json:"-" gorm:"type:jsonb"`
	Metadata   datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

func (Payment) TableName() string {
	return "payments"
}

// AllModels lists the tables managed by auto-migration.
func AllModels() []any {
	return []any{
		&Course{},
		&Module{},
		&Section{},
		&Enrollment{},
		&UserProgress{},
		&Payment{},
	}
}
