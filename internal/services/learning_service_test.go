package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLearningService_GetCoursePlayer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := seedCourse(t, env.db, "Go", 1500, true, 2)
	svc := env.learning()

	_, err := svc.GetCoursePlayer(ctx, student, course.ID)
	assert.ErrorIs(t, err, ErrNotEnrolled)

	enroll(t, env.db, student.ID, course.ID)
	_, err = env.progress().UpdateProgress(ctx, student, course.ID, course.Modules[1].ID, true)
	require.NoError(t, err)

	player, err := svc.GetCoursePlayer(ctx, student, course.ID)
	require.NoError(t, err)
	require.Len(t, player.Course.Modules, 2)
	assert.Equal(t, 2, player.Course.ModuleCount)

	section := player.Course.Modules[0].Sections[0]
	assert.Contains(t, section.ContentHTML, "Hola</h1>")
	assert.Contains(t, section.ContentHTML, "<p>Primera lección</p>")

	assert.Equal(t, []uint{course.Modules[1].ID}, player.CompletedModules)
	assert.Equal(t, 50, player.Progress.Percentage)
}

func TestLearningService_AdminWithoutEnrollment(t *testing.T) {
	env := newTestEnv(t)
	course := seedCourse(t, env.db, "Go", 1500, false, 1)

	player, err := env.learning().GetCoursePlayer(context.Background(), admin, course.ID)
	require.NoError(t, err)
	assert.Empty(t, player.CompletedModules)

	_, err = env.learning().GetCoursePlayer(context.Background(), admin, 999)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}
