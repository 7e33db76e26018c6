package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/invoice"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/metrics"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

const (
	invoiceRetryAge   = 10 * time.Minute
	invoiceRetryBatch = 50
)

type invoiceService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	mailer    mailer.Sender
	publisher events.EventPublisher
	metrics   *metrics.Metrics
	topic     string
	now       func() time.Time
}

func NewInvoiceService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, sender mailer.Sender, publisher events.EventPublisher, m *metrics.Metrics, topic string) InvoiceService {
	return &invoiceService{
		repo:      repo,
		db:        db,
		logger:    logger,
		mailer:    sender,
		publisher: publisher,
		metrics:   m,
		topic:     topic,
		now:       time.Now,
	}
}

// HandlePaymentApproved renders and emails the invoice of a recorded payment.
// Returning an error makes the consumer retry the message.
func (s *invoiceService) HandlePaymentApproved(ctx context.Context, event *events.Event) error {
	var data events.PaymentApprovedData
	if err := event.Decode(&data); err != nil {
		s.logger.Error("Dropping malformed payment event", "event_id", event.ID, "error", err)
		return nil
	}

	payment, err := s.repo.Payment().GetByID(ctx, nil, data.PaymentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Warn("Payment of event not found", "event_id", event.ID, "payment_id", data.PaymentID)
			return nil
		}
		return fmt.Errorf("failed to load payment: %w", err)
	}

	if payment.InvoiceSentAt != nil && !data.Resend {
		s.logger.Info("Invoice already sent, skipping", "payment_id", payment.ID)
		return nil
	}

	title := data.CourseTitle
	if payment.Course != nil && payment.Course.Title != "" {
		title = payment.Course.Title
	}
	if title == "" {
		title = fallbackCourseTitle
	}

	pdf, err := invoice.Render(invoiceFor(payment, title))
	if err != nil {
		return err
	}

	to := payment.PayerEmail
	if to == "" {
		to = data.PayerEmail
	}

	err = s.mailer.Send(ctx, mailer.Message{
		ToEmail: to,
		Subject: "Factura de compra: " + title,
		HTML: fmt.Sprintf("<p>Gracias por tu compra de <strong>%s</strong>.</p><p>Adjuntamos la factura del pago %s.</p>",
			html.EscapeString(title), html.EscapeString(payment.MPPaymentID)),
		Text: fmt.Sprintf("Gracias por tu compra de %s. Adjuntamos la factura del pago %s.", title, payment.MPPaymentID),
		Attachments: []mailer.Attachment{{
			Filename:    invoice.Filename(payment.MPPaymentID),
			ContentType: invoice.ContentType,
			Content:     pdf,
		}},
	})
	if err != nil {
		s.metrics.InvoiceSent("error")
		return fmt.Errorf("failed to send invoice: %w", err)
	}

	if err := s.repo.Payment().MarkInvoiceSent(ctx, nil, payment.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to mark invoice sent: %w", err)
	}

	s.metrics.InvoiceSent("ok")
	s.logger.Info("Invoice sent", "payment_id", payment.ID, "mp_payment_id", payment.MPPaymentID, "resend", data.Resend)
	return nil
}

func invoiceFor(p *models.Payment, title string) invoice.Invoice {
	issued := p.PaidAt
	if issued.IsZero() {
		issued = p.CreatedAt
	}
	return invoice.Invoice{
		CourseTitle: title,
		Amount:      p.Amount,
		Currency:    p.Currency,
		PaymentID:   p.MPPaymentID,
		IssuedAt:    issued,
	}
}

// GetInvoice renders the invoice of a provider payment owned by user. Admins may read any invoice.
func (s *invoiceService) GetInvoice(ctx context.Context, user *models.User, mpPaymentID string) (*InvoiceFile, error) {
	var (
		payment *models.Payment
		err     error
	)
	if user.IsAdmin() {
		payment, err = s.repo.Payment().GetByProviderID(ctx, nil, mpPaymentID)
	} else {
		payment, err = s.repo.Payment().GetByProviderIDForUser(ctx, nil, mpPaymentID, user.ID)
	}
	if err != nil {
		return nil, mapNotFound(err, ErrPaymentNotFound, "failed to get payment")
	}

	pdf, err := invoice.Render(invoiceFor(payment, courseTitle(payment.Course)))
	if err != nil {
		return nil, err
	}
	return &InvoiceFile{
		Filename:    invoice.Filename(payment.MPPaymentID),
		ContentType: invoice.ContentType,
		Content:     pdf,
	}, nil
}

// Resend publishes the payment event again and forces a new email
func (s *invoiceService) Resend(ctx context.Context, mpPaymentID string) error {
	payment, err := s.repo.Payment().GetByProviderID(ctx, nil, mpPaymentID)
	if err != nil {
		return mapNotFound(err, ErrPaymentNotFound, "failed to get payment")
	}
	if err := publishPaymentApproved(ctx, s.publisher, s.topic, payment, courseTitle(payment.Course), true); err != nil {
		return fmt.Errorf("failed to publish payment event: %w", err)
	}
	s.logger.Info("Invoice resend requested", "payment_id", payment.ID)
	return nil
}

// RetryPending republishes approved payments whose invoice was never sent
func (s *invoiceService) RetryPending(ctx context.Context) (int, error) {
	pending, err := s.repo.Payment().ListPendingInvoices(ctx, nil, s.now().Add(-invoiceRetryAge), invoiceRetryBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending invoices: %w", err)
	}

	published := 0
	for _, payment := range pending {
		if err := publishPaymentApproved(ctx, s.publisher, s.topic, payment, courseTitle(payment.Course), false); err != nil {
			s.logger.Error("Failed to republish payment event", "payment_id", payment.ID, "error", err)
			continue
		}
		published++
	}
	if published > 0 {
		s.logger.Info("Republished pending invoices", "count", published)
	}
	return published, nil
}
