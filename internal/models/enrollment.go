package models

import (
	"time"
)

type EnrollmentSource string

const (
	EnrollmentFree    EnrollmentSource = "free"
	EnrollmentPayment EnrollmentSource = "payment"
	EnrollmentAdmin   EnrollmentSource = "admin"
)

// Enrollment links a user to a course. One row per (user, course).
type Enrollment struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    string           `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_course"`
	CourseID  uint             `json:"course_id" gorm:"not null;uniqueIndex:idx_user_course;index"`
	Source    EnrollmentSource `json:"source" gorm:"size:20;default:free"`
	CreatedAt time.Time        `json:"created_at"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

func (Enrollment) TableName() string {
	return "user_courses"
}

// UserProgress is the completion flag of one module for one user.
type UserProgress struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_module"`
	ModuleID    uint       `json:"module_id" gorm:"not null;uniqueIndex:idx_user_module;index"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	CompletedAt *time.Time `json:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Module *Module `json:"-" gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}
