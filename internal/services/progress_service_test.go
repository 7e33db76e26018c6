package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressService_UpdateProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := seedCourse(t, env.db, "Go", 0, true, 2)
	other := seedCourse(t, env.db, "Rust", 0, true, 1)
	enroll(t, env.db, student.ID, course.ID)
	svc := env.progress()

	p, err := svc.UpdateProgress(ctx, student, course.ID, course.Modules[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CompletedModules)
	assert.Equal(t, 50, p.Percentage)
	assert.False(t, p.Completed)

	p, err = svc.UpdateProgress(ctx, student, course.ID, course.Modules[1].ID, true)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Percentage)
	assert.True(t, p.Completed)

	// completing twice does not double count
	p, err = svc.UpdateProgress(ctx, student, course.ID, course.Modules[1].ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, p.CompletedModules)

	p, err = svc.UpdateProgress(ctx, student, course.ID, course.Modules[0].ID, false)
	require.NoError(t, err)
	assert.Equal(t, 50, p.Percentage)

	_, err = svc.UpdateProgress(ctx, student, course.ID, other.Modules[0].ID, true)
	assert.ErrorIs(t, err, ErrModuleNotFound)

	_, err = svc.UpdateProgress(ctx, student, other.ID, other.Modules[0].ID, true)
	assert.ErrorIs(t, err, ErrNotEnrolled)

	_, err = svc.UpdateProgress(ctx, student, 999, course.Modules[0].ID, true)
	assert.ErrorIs(t, err, ErrCourseNotFound)

	// admins may mark progress without enrolling
	_, err = svc.UpdateProgress(ctx, admin, other.ID, other.Modules[0].ID, true)
	require.NoError(t, err)
}

func TestProgressService_GetCourseProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := seedCourse(t, env.db, "Go", 0, true, 4)
	seedCourse(t, env.db, "Rust", 0, false, 1)
	enroll(t, env.db, student.ID, course.ID)
	svc := env.progress()

	_, err := svc.UpdateProgress(ctx, student, course.ID, course.Modules[0].ID, true)
	require.NoError(t, err)

	mine, err := svc.GetCourseProgress(ctx, student)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, course.ID, mine[0].CourseID)
	assert.Equal(t, 4, mine[0].TotalModules)
	assert.Equal(t, 25, mine[0].Percentage)

	all, err := svc.GetCourseProgress(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProgressService_Ranking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := seedCourse(t, env.db, "Go", 0, true, 1)
	seedCourse(t, env.db, "Draft", 0, false, 1)
	enroll(t, env.db, student.ID, course.ID)
	svc := env.progress()

	_, err := svc.UpdateProgress(ctx, student, course.ID, course.Modules[0].ID, true)
	require.NoError(t, err)

	require.NoError(t, svc.RefreshRanking(ctx))
	rankings, err := svc.GetRanking(ctx)
	require.NoError(t, err)
	require.Len(t, rankings, 1, "unpublished courses are not ranked")
	assert.Equal(t, "Go", rankings[0].Title)
	assert.Equal(t, 1, rankings[0].Finishers)
	assert.Equal(t, 100, rankings[0].Percentage)
}
