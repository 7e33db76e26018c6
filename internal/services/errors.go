package services

import (
	"errors"
	"fmt"
)

var (
	ErrCourseNotFound  = errors.New("course not found")
	ErrModuleNotFound  = errors.New("module not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrUserNotFound    = errors.New("user not found")

	ErrNotEnrolled       = errors.New("not enrolled in this course")
	ErrAlreadyEnrolled   = errors.New("already enrolled in this course")
	ErrPaymentRequired   = errors.New("this course requires payment")
	ErrCourseIsFree      = errors.New("this course is free, enroll directly")
	ErrCourseHasPayments = errors.New("course has payments and cannot be deleted")
	ErrInvalidDateRange  = errors.New("from must be before to")

	ErrInvalidWebhook   = errors.New("invalid payment notification")
	ErrInvalidSignature = errors.New("invalid webhook signature")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidOAuthState  = errors.New("invalid or expired oauth state")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")

	// ErrUpstream wraps failures of the payment provider
	ErrUpstream = errors.New("payment provider unavailable")
	// ErrUnavailable is returned when a required backing system is not configured or down
	ErrUnavailable = errors.New("service temporarily unavailable")
)

// PermissionError is returned when a user may not act on a resource
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func IsPermissionError(err error) bool {
	var permErr *PermissionError
	return errors.As(err, &permErr)
}
