package services

import (
	"sort"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

type userModule struct {
	userID   string
	moduleID uint
}

// ComputeRanking reduces modules, progress and enrollments to one row per course.
//
// A finisher is a user whose distinct completed modules within the course
// equal the course's module count. Participants are the enrolled users, or
// the users with progress in the course when no enrollment rows exist for it.
// Progress on unknown modules is ignored.
func ComputeRanking(src repositories.RankingSource) []models.CourseRanking {
	moduleCourse := make(map[uint]uint, len(src.Modules))
	totalModules := make(map[uint]int)
	for _, m := range src.Modules {
		if _, seen := moduleCourse[m.ID]; seen {
			continue
		}
		moduleCourse[m.ID] = m.CourseID
		totalModules[m.CourseID]++
	}

	// distinct completed (user, module) pairs
	completedPairs := make(map[userModule]struct{})
	progressUsers := make(map[uint]map[string]struct{})
	for _, p := range src.Progress {
		courseID, ok := moduleCourse[p.ModuleID]
		if !ok {
			continue
		}
		if progressUsers[courseID] == nil {
			progressUsers[courseID] = make(map[string]struct{})
		}
		progressUsers[courseID][p.UserID] = struct{}{}
		if p.Completed {
			completedPairs[userModule{userID: p.UserID, moduleID: p.ModuleID}] = struct{}{}
		}
	}

	completedByCourse := make(map[uint]int)
	completedByUser := make(map[uint]map[string]int)
	for pair := range completedPairs {
		courseID := moduleCourse[pair.moduleID]
		completedByCourse[courseID]++
		if completedByUser[courseID] == nil {
			completedByUser[courseID] = make(map[string]int)
		}
		completedByUser[courseID][pair.userID]++
	}

	enrolled := make(map[uint]map[string]struct{})
	for _, e := range src.Enrollments {
		if enrolled[e.CourseID] == nil {
			enrolled[e.CourseID] = make(map[string]struct{})
		}
		enrolled[e.CourseID][e.UserID] = struct{}{}
	}

	rankings := make([]models.CourseRanking, 0, len(src.Courses))
	for _, course := range src.Courses {
		if course == nil {
			continue
		}
		total := totalModules[course.ID]

		participants := len(enrolled[course.ID])
		if participants == 0 {
			participants = len(progressUsers[course.ID])
		}

		finishers := 0
		if total > 0 {
			for _, n := range completedByUser[course.ID] {
				if n == total {
					finishers++
				}
			}
		}

		completed := completedByCourse[course.ID]
		rankings = append(rankings, models.CourseRanking{
			CourseID:         course.ID,
			Title:            course.Title,
			ImageURL:         course.ImageURL,
			TotalModules:     total,
			CompletedModules: completed,
			Participants:     participants,
			Finishers:        finishers,
			Percentage:       percentage(completed, total*participants),
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		if a.Finishers != b.Finishers {
			return a.Finishers > b.Finishers
		}
		return a.Title < b.Title
	})
	return rankings
}
