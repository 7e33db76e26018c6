package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	PaymentApproved EventType = "payment.approved"
)

const (
	eventSource  = "course-marketplace"
	eventVersion = "1.0"
)

// Event is the envelope published on the bus
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh id
func NewEvent(eventType EventType, data interface{}) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event data: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      payload,
	}, nil
}

// Decode unmarshals the event data into dest
func (e *Event) Decode(dest interface{}) error {
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("failed to decode %s event data: %w", e.Type, err)
	}
	return nil
}

// PaymentApprovedData is published once per newly recorded approved payment
type PaymentApprovedData struct {
	PaymentID   uint    `json:"payment_id"`
	MPPaymentID string  `json:"mp_payment_id"`
	UserID      string  `json:"user_id"`
	CourseID    uint    `json:"course_id"`
	CourseTitle string  `json:"course_title"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	PayerEmail  string  `json:"payer_email"`
	// Resend forces a new invoice even when one was already sent
	Resend bool `json:"resend,omitempty"`
}
