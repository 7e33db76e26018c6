package models

import "time"

// CourseProgress is a learner's completion of one course.
type CourseProgress struct {
	CourseID         uint    `json:"course_id"`
	Title            string  `json:"title"`
	ImageURL         string  `json:"image_url"`
	TotalModules     int     `json:"total_modules"`
	CompletedModules int     `json:"completed_modules"`
	Percentage       int     `json:"percentage"`
	Completed        bool    `json:"completed"`
	Course           *Course `json:"course,omitempty"`
}

// CourseRanking is the aggregate completion of a course across learners.
type CourseRanking struct {
	CourseID         uint   `json:"course_id"`
	Title            string `json:"title"`
	ImageURL         string `json:"image_url"`
	TotalModules     int    `json:"total_modules"`
	CompletedModules int    `json:"completed_modules"`
	Participants     int    `json:"participants"`
	Finishers        int    `json:"finishers"`
	Percentage       int    `json:"percentage"`
}

// ModuleRef, ProgressRef and EnrollmentRef are the narrow rows the ranking is computed from.
type ModuleRef struct {
	ID       uint `json:"id"`
	CourseID uint `json:"course_id"`
}

type ProgressRef struct {
	UserID    string `json:"user_id"`
	ModuleID  uint   `json:"module_id"`
	Completed bool   `json:"completed"`
}

type EnrollmentRef struct {
	UserID   string `json:"user_id"`
	CourseID uint   `json:"course_id"`
}

type LearnerDashboard struct {
	EnrolledCourses  int              `json:"enrolled_courses"`
	CompletedCourses int              `json:"completed_courses"`
	AverageProgress  int              `json:"average_progress"`
	Progress         []CourseProgress `json:"progress"`
	LatestCourses    []*Course        `json:"latest_courses"`
	Admin            *AdminStats      `json:"admin,omitempty"`
}

type AdminStats struct {
	TotalCourses     int64   `json:"total_courses"`
	PublishedCourses int64   `json:"published_courses"`
	TotalEnrollments int64   `json:"total_enrollments"`
	ApprovedPayments int64   `json:"approved_payments"`
	ApprovedRevenue  float64 `json:"approved_revenue"`
}

type Profile struct {
	User     *User            `json:"user"`
	Progress []CourseProgress `json:"progress"`
	Payments []*Payment       `json:"payments"`
}

type SitemapURL struct {
	Loc        string
	LastMod    *time.Time
	ChangeFreq string
	Priority   float64
}
