package services

import (
	"fmt"
	"math"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

const fallbackCourseTitle = "Curso adquirido"

// mapNotFound replaces repository not-found errors with the service sentinel
func mapNotFound(err error, sentinel error, op string) error {
	if repositories.IsNotFoundError(err) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

// percentage is round(part/total*100) clamped to [0, 100]. A zero total yields 0.
func percentage(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	p := int(math.Round(float64(part) / float64(total) * 100))
	if p > 100 {
		return 100
	}
	return p
}

func courseProgress(course *models.Course, total, completed int) models.CourseProgress {
	if completed > total {
		completed = total
	}
	return models.CourseProgress{
		CourseID:         course.ID,
		Title:            course.Title,
		ImageURL:         course.ImageURL,
		TotalModules:     total,
		CompletedModules: completed,
		Percentage:       percentage(completed, total),
		Completed:        total > 0 && completed >= total,
	}
}

func userIDOf(user *models.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}

func courseTitle(course *models.Course) string {
	if course == nil || course.Title == "" {
		return fallbackCourseTitle
	}
	return course.Title
}
