package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

func newCourses(env *testEnv) CourseService {
	return NewCourseService(env.repo, env.db, env.logger, env.validator, env.cache)
}

func TestCourseService_List(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCourse(t, env.db, "Go desde cero", 0, true, 3)
	seedCourse(t, env.db, "Rust", 2500, true, 1)
	seedCourse(t, env.db, "Borrador", 0, false, 1)
	svc := newCourses(env)

	maxPrice := 100.0
	tests := []struct {
		name      string
		query     *CourseListQuery
		wantTotal int64
		wantFirst string
	}{
		{name: "defaults", query: nil, wantTotal: 2},
		{name: "text search", query: &CourseListQuery{Query: "cero"}, wantTotal: 1, wantFirst: "Go desde cero"},
		{name: "price cap", query: &CourseListQuery{MaxPrice: &maxPrice}, wantTotal: 1, wantFirst: "Go desde cero"},
		{name: "sorted by price", query: &CourseListQuery{SortBy: "price", SortOrder: "desc"}, wantTotal: 2, wantFirst: "Rust"},
		{name: "no match", query: &CourseListQuery{Category: "cooking"}, wantTotal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.List(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, resp.Total)
			assert.Len(t, resp.Courses, int(tt.wantTotal))
			assert.Equal(t, 1, resp.Page)
			assert.Equal(t, defaultPageSize, resp.Size)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, resp.Courses[0].Title)
			}
			for _, c := range resp.Courses {
				assert.True(t, c.Published)
				if c.Title == "Go desde cero" {
					assert.Equal(t, 3, c.ModuleCount)
				}
			}
		})
	}

	_, err := svc.List(ctx, &CourseListQuery{SortBy: "drop table"})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestCourseService_LatestAndCategories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCourse(t, env.db, "A", 0, true, 1)
	seedCourse(t, env.db, "B", 0, true, 1)
	draft := seedCourse(t, env.db, "C", 0, false, 1)
	require.NoError(t, env.db.Model(draft).Update("category", "hidden").Error)
	svc := newCourses(env)

	latest, err := svc.Latest(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, latest, 2)

	latest, err = svc.Latest(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, latest, 1)

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"programming"}, categories)
}

func TestCourseService_GetByID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := seedCourse(t, env.db, "Go", 0, true, 2)
	draft := seedCourse(t, env.db, "Draft", 0, false, 1)
	enroll(t, env.db, student.ID, course.ID)
	svc := newCourses(env)

	tests := []struct {
		name         string
		id           uint
		viewer       *models.User
		wantErr      error
		wantEnrolled bool
	}{
		{name: "anonymous", id: course.ID},
		{name: "enrolled student", id: course.ID, viewer: student, wantEnrolled: true},
		{name: "draft hidden", id: draft.ID, viewer: student, wantErr: ErrCourseNotFound},
		{name: "draft visible to admin", id: draft.ID, viewer: admin},
		{name: "unknown", id: 999, wantErr: ErrCourseNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := svc.GetByID(ctx, tt.id, tt.viewer)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnrolled, detail.IsEnrolled)
			for _, m := range detail.Modules {
				assert.Empty(t, m.Sections, "lesson bodies are not part of the outline")
			}
		})
	}
}
