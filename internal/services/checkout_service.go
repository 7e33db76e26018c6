package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/mercadopago"
	"github.com/SAP-F-2025/course-marketplace/internal/metrics"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

// CheckoutConfig holds the URLs and secrets of the payment flow
type CheckoutConfig struct {
	SiteURL       string
	Currency      string
	WebhookSecret string
	InvoiceTopic  string
}

type checkoutService struct {
	repo        repositories.Repository
	db          *gorm.DB
	logger      *slog.Logger
	validator   *validator.Validator
	gateway     PaymentGateway
	publisher   events.EventPublisher
	enrollments EnrollmentService
	metrics     *metrics.Metrics
	config      CheckoutConfig
}

func NewCheckoutService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	gateway PaymentGateway,
	publisher events.EventPublisher,
	enrollments EnrollmentService,
	m *metrics.Metrics,
	config CheckoutConfig,
) CheckoutService {
	return &checkoutService{
		repo:        repo,
		db:          db,
		logger:      logger,
		validator:   validator,
		gateway:     gateway,
		publisher:   publisher,
		enrollments: enrollments,
		metrics:     m,
		config:      config,
	}
}

// ===== PREFERENCE =====

func (s *checkoutService) CreatePreference(ctx context.Context, user *models.User, req *CheckoutRequest) (*PreferenceResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, nil, req.CourseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound, "failed to get course")
	}
	if !course.Published {
		return nil, ErrCourseNotFound
	}

	enrolled, err := s.repo.Enrollment().Exists(ctx, nil, user.ID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}
	if course.IsFree() {
		return nil, ErrCourseIsFree
	}

	site := s.config.SiteURL
	pref, err := s.gateway.CreatePreference(ctx, mercadopago.PreferenceRequest{
		Items: []mercadopago.PreferenceItem{{
			ID:         strconv.FormatUint(uint64(course.ID), 10),
			Title:      course.Title,
			Quantity:   1,
			CurrencyID: s.config.Currency,
			UnitPrice:  course.Price,
		}},
		Payer: &mercadopago.Payer{Email: user.Email},
		BackURLs: mercadopago.BackURLs{
			Success: fmt.Sprintf("%s/pago-exitoso?courseId=%d&userId=%s", site, course.ID, user.ID),
			Failure: site + "/pago-fallido",
			Pending: site + "/pago-pendiente",
		},
		AutoReturn:        "approved",
		NotificationURL:   site + "/api/v1/payments/webhook",
		ExternalReference: fmt.Sprintf("%s:%d", user.ID, course.ID),
		Metadata: map[string]interface{}{
			"course_id": course.ID,
			"user_id":   user.ID,
		},
	}, "")
	if err != nil {
		s.logger.Error("Failed to create payment preference", "course_id", course.ID, "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.logger.Info("Payment preference created", "course_id", course.ID, "user_id", user.ID, "preference_id", pref.ID)
	return &PreferenceResponse{
		PreferenceID:     pref.ID,
		InitPoint:        pref.InitPoint,
		SandboxInitPoint: pref.SandboxInitPoint,
	}, nil
}

// ===== WEBHOOK =====

// HandleWebhook records an approved payment and its enrollment. Replays of the
// same provider payment change nothing.
func (s *checkoutService) HandleWebhook(ctx context.Context, n WebhookNotification) (*WebhookResult, error) {
	if n.Type != "payment" || n.DataID == "" {
		return &WebhookResult{Received: true}, nil
	}

	if s.config.WebhookSecret != "" && !mercadopago.VerifySignature(s.config.WebhookSecret, n.Signature, n.RequestID, n.DataID) {
		s.metrics.PaymentProcessed("unknown", "bad_signature")
		return nil, ErrInvalidSignature
	}

	payment, err := s.gateway.GetPayment(ctx, n.DataID)
	if err != nil {
		s.logger.Error("Failed to fetch payment", "mp_payment_id", n.DataID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if payment.Status != string(models.PaymentApproved) {
		s.metrics.PaymentProcessed(payment.Status, "ignored")
		s.logger.Info("Payment not approved, ignoring", "mp_payment_id", n.DataID, "status", payment.Status)
		return &WebhookResult{Received: true, Status: payment.Status}, nil
	}

	userID, courseID := paymentOwner(payment)
	if userID == "" || courseID == 0 || payment.Payer.Email == "" {
		s.metrics.PaymentProcessed(payment.Status, "invalid")
		return nil, fmt.Errorf("%w: missing user, course or payer email", ErrInvalidWebhook)
	}

	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: unknown course %d", ErrInvalidWebhook, courseID)
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	record := &models.Payment{
		UserID:      userID,
		CourseID:    courseID,
		MPPaymentID: payment.IDString(),
		Amount:      payment.TransactionAmount,
		Currency:    payment.CurrencyID,
		Status:      models.PaymentApproved,
		PayerEmail:  payment.Payer.Email,
		PaidAt:      time.Now().UTC(),
		RawPayload:  datatypes.JSON(payment.Raw),
	}
	if record.Currency == "" {
		record.Currency = s.config.Currency
	}
	if payment.DateApproved != nil {
		record.PaidAt = payment.DateApproved.UTC()
	}
	if len(payment.Metadata) > 0 {
		if meta, err := json.Marshal(payment.Metadata); err == nil {
			record.Metadata = datatypes.JSON(meta)
		}
	}

	var created bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.repo.Payment().Create(ctx, tx, record)
		if err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		_, err = s.enrollments.EnsureEnrollment(ctx, tx, userID, courseID, models.EnrollmentPayment)
		return err
	})
	if err != nil {
		s.metrics.PaymentProcessed(payment.Status, "error")
		return nil, err
	}

	if !created {
		s.metrics.PaymentProcessed(payment.Status, "duplicate")
		s.logger.Info("Payment already recorded", "mp_payment_id", record.MPPaymentID)
		return &WebhookResult{Received: true, Status: payment.Status}, nil
	}

	s.metrics.PaymentProcessed(payment.Status, "recorded")
	s.logger.Info("Payment recorded",
		"mp_payment_id", record.MPPaymentID,
		"user_id", userID,
		"course_id", courseID,
		"amount", record.Amount)

	// a failed publish is picked up by the invoice retry job
	if err := publishPaymentApproved(ctx, s.publisher, s.config.InvoiceTopic, record, courseTitle(course), false); err != nil {
		s.logger.Error("Failed to publish payment event", "payment_id", record.ID, "error", err)
	}

	return &WebhookResult{Received: true, Status: payment.Status}, nil
}

func publishPaymentApproved(ctx context.Context, publisher events.EventPublisher, topic string, p *models.Payment, title string, resend bool) error {
	event, err := events.NewEvent(events.PaymentApproved, events.PaymentApprovedData{
		PaymentID:   p.ID,
		MPPaymentID: p.MPPaymentID,
		UserID:      p.UserID,
		CourseID:    p.CourseID,
		CourseTitle: title,
		Amount:      p.Amount,
		Currency:    p.Currency,
		PayerEmail:  p.PayerEmail,
		Resend:      resend,
	})
	if err != nil {
		return err
	}
	return publisher.Publish(ctx, topic, event)
}

// paymentOwner reads user and course ids from the payment metadata, in snake
// or camel case, then falls back to the "user:course" external reference.
func paymentOwner(p *mercadopago.Payment) (string, uint) {
	userID := metadataString(p.Metadata, "user_id", "userId")
	courseID := metadataUint(p.Metadata, "course_id", "courseId")

	if (userID == "" || courseID == 0) && p.ExternalReference != "" {
		if u, c, ok := strings.Cut(p.ExternalReference, ":"); ok {
			if userID == "" {
				userID = strings.TrimSpace(u)
			}
			if courseID == 0 {
				if id, err := strconv.ParseUint(strings.TrimSpace(c), 10, 64); err == nil {
					courseID = uint(id)
				}
			}
		}
	}
	return userID, courseID
}

func metadataString(meta map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := meta[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func metadataUint(meta map[string]interface{}, keys ...string) uint {
	for _, key := range keys {
		switch v := meta[key].(type) {
		case float64:
			if v > 0 {
				return uint(v)
			}
		case string:
			if id, err := strconv.ParseUint(v, 10, 64); err == nil && id > 0 {
				return uint(id)
			}
		}
	}
	return 0
}
