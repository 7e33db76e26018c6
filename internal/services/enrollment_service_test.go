package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

func TestEnrollmentService_Enroll(t *testing.T) {
	tests := []struct {
		name        string
		user        *models.User
		price       float64
		published   bool
		enrolled    bool
		wantErr     error
		wantAlready bool
		wantSource  models.EnrollmentSource
	}{
		{name: "free course", user: student, published: true, wantSource: models.EnrollmentFree},
		{name: "already enrolled", user: student, published: true, enrolled: true, wantAlready: true, wantSource: models.EnrollmentFree},
		{name: "paid course requires payment", user: student, price: 1500, published: true, wantErr: ErrPaymentRequired},
		{name: "admin gets paid course", user: admin, price: 1500, published: true, wantSource: models.EnrollmentAdmin},
		{name: "unpublished course", user: student, published: false, wantErr: ErrCourseNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			course := seedCourse(t, env.db, "Go", tt.price, tt.published, 2)
			if tt.enrolled {
				enroll(t, env.db, tt.user.ID, course.ID)
			}

			resp, err := env.enrollments().Enroll(ctx, tt.user, course.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, resp.Enrolled)
			assert.Equal(t, tt.wantAlready, resp.AlreadyEnrolled)

			var rows []models.Enrollment
			require.NoError(t, env.db.Where("user_id = ?", tt.user.ID).Find(&rows).Error)
			require.Len(t, rows, 1)
			assert.Equal(t, tt.wantSource, rows[0].Source)
		})
	}
}

func TestEnrollmentService_UnknownCourse(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.enrollments().Enroll(context.Background(), student, 999)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestEnrollmentService_EnsureEnrollmentIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := seedCourse(t, env.db, "Go", 1500, true, 1)
	svc := env.enrollments()

	created, err := svc.EnsureEnrollment(ctx, nil, student.ID, course.ID, models.EnrollmentPayment)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureEnrollment(ctx, nil, student.ID, course.ID, models.EnrollmentPayment)
	require.NoError(t, err)
	assert.False(t, created)

	enrolled, err := svc.IsEnrolled(ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	mine, err := svc.ListMyCourses(ctx, student)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Go", mine[0].Course.Title)
}
