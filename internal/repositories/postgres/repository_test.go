package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedCourse(t *testing.T, db *gorm.DB, title string, price float64, published bool, modules int) *models.Course {
	t.Helper()
	course := &models.Course{
		Title:      title,
		Category:   "programming",
		Difficulty: models.DifficultyBeginner,
		Price:      price,
		Published:  published,
	}
	for i := 1; i <= modules; i++ {
		course.Modules = append(course.Modules, models.Module{
			Title:       fmt.Sprintf("%s module %d", title, i),
			OrderNumber: i,
			Sections: []models.Section{
				{Title: "intro", Content: "# hello", OrderNumber: 1},
			},
		})
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func TestEnrollmentPostgreSQL_CreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	course := seedCourse(t, db, "Go", 0, true, 1)
	repo := NewEnrollmentPostgreSQL(db)

	created, err := repo.Create(ctx, nil, &models.Enrollment{UserID: "u1", CourseID: course.ID, Source: models.EnrollmentFree})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, nil, &models.Enrollment{UserID: "u1", CourseID: course.ID, Source: models.EnrollmentPayment})
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	exists, err := repo.Exists(ctx, nil, "u1", course.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	list, err := repo.ListByUser(ctx, nil, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Course)
	assert.Equal(t, "Go", list[0].Course.Title)
	assert.Equal(t, models.EnrollmentFree, list[0].Source)
}

func TestPaymentPostgreSQL_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	course := seedCourse(t, db, "Go", 100, true, 1)
	repo := NewPaymentPostgreSQL(db)

	payment := &models.Payment{
		UserID:      "u1",
		CourseID:    course.ID,
		MPPaymentID: "mp-1",
		Amount:      100,
		Currency:    "ARS",
		Status:      models.PaymentApproved,
		PaidAt:      time.Now().UTC(),
	}
	created, err := repo.Create(ctx, nil, payment)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, nil, &models.Payment{UserID: "u1", CourseID: course.ID, MPPaymentID: "mp-1", Status: models.PaymentApproved})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetByProviderIDForUser(ctx, nil, "mp-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)
	require.NotNil(t, got.Course)

	_, err = repo.GetByProviderIDForUser(ctx, nil, "mp-1", "someone-else")
	assert.True(t, repositories.IsNotFoundError(err))

	pending, err := repo.ListPendingInvoices(ctx, nil, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkInvoiceSent(ctx, nil, payment.ID, time.Now().UTC()))
	pending, err = repo.ListPendingInvoices(ctx, nil, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, repo.MarkInvoiceSent(ctx, nil, 9999, time.Now()), repositories.ErrNotFound)

	exists, err := repo.ExistsForCourse(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProgressPostgreSQL_UpsertAndCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	course := seedCourse(t, db, "Go", 0, true, 3)
	repo := NewProgressPostgreSQL(db)

	m1, m2 := course.Modules[0].ID, course.Modules[1].ID

	require.NoError(t, repo.Upsert(ctx, nil, &models.UserProgress{UserID: "u1", ModuleID: m1, Completed: true}))
	require.NoError(t, repo.Upsert(ctx, nil, &models.UserProgress{UserID: "u1", ModuleID: m1, Completed: true}))
	require.NoError(t, repo.Upsert(ctx, nil, &models.UserProgress{UserID: "u1", ModuleID: m2, Completed: true}))
	require.NoError(t, repo.Upsert(ctx, nil, &models.UserProgress{UserID: "u1", ModuleID: m2, Completed: false}))

	counts, err := repo.CountCompletedByCourse(ctx, nil, "u1", []uint{course.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[course.ID])

	rows, err := repo.ListByUserAndCourse(ctx, nil, "u1", course.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	for _, row := range rows {
		if row.ModuleID == m2 {
			assert.False(t, row.Completed)
			assert.Nil(t, row.CompletedAt)
		}
	}
}

func TestCoursePostgreSQL_ListFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCoursePostgreSQL(db, cache.NewCacheManager(nil))

	seedCourse(t, db, "Go Basics", 0, true, 0)
	seedCourse(t, db, "Advanced Go", 500, true, 0)
	seedCourse(t, db, "Draft", 10, false, 0)

	published := true
	courses, total, err := repo.List(ctx, nil, repositories.CourseFilters{Published: &published})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, courses, 2)

	maxPrice := 100.0
	courses, total, err = repo.List(ctx, nil, repositories.CourseFilters{Published: &published, MaxPrice: &maxPrice})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Go Basics", courses[0].Title)

	courses, _, err = repo.List(ctx, nil, repositories.CourseFilters{Published: &published, Query: "advanced"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Advanced Go", courses[0].Title)

	courses, _, err = repo.List(ctx, nil, repositories.CourseFilters{Published: &published, SortBy: "price", SortOrder: "asc", Limit: 1})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Go Basics", courses[0].Title)

	categories, err := repo.ListCategories(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"programming"}, categories)

	count, err := repo.Count(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestCoursePostgreSQL_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cm := cache.NewCacheManager(nil)
	repo := NewCoursePostgreSQL(db, cm)
	progress := NewProgressPostgreSQL(db)

	course := seedCourse(t, db, "Go", 0, true, 2)
	require.NoError(t, progress.Upsert(ctx, nil, &models.UserProgress{UserID: "u1", ModuleID: course.Modules[0].ID, Completed: true}))

	loaded, err := repo.GetByIDWithContent(ctx, nil, course.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Modules, 2)
	assert.Equal(t, 1, loaded.Modules[0].OrderNumber)
	require.Len(t, loaded.Modules[0].Sections, 1)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.Delete(ctx, tx, course.ID)
	}))

	var modules, sections, rows int64
	db.Model(&models.Module{}).Count(&modules)
	db.Model(&models.Section{}).Count(&sections)
	db.Model(&models.UserProgress{}).Count(&rows)
	assert.Zero(t, modules)
	assert.Zero(t, sections)
	assert.Zero(t, rows)

	_, err = repo.GetByID(ctx, nil, course.ID)
	assert.True(t, repositories.IsNotFoundError(err))
}

func newTestCache(t *testing.T) *cache.CacheManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewCacheManager(client)
}

func cachedOutline(ctx context.Context, cm *cache.CacheManager, courseID uint) (*models.Course, error) {
	var course models.Course
	if err := cm.Course.Get(ctx, fmt.Sprintf("outline:%d", courseID), &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func TestCoursePostgreSQL_TransactionsLeaveCacheToCaller(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cm := newTestCache(t)
	courses := NewCoursePostgreSQL(db, cm)
	modules := NewModulePostgreSQL(db, cm)
	course := seedCourse(t, db, "Go", 0, true, 1)

	errRollback := errors.New("rollback")
	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, modules.Create(ctx, tx, &models.Module{CourseID: course.ID, Title: "draft", OrderNumber: 2}))
		outline, err := courses.GetByIDWithModules(ctx, tx, course.ID)
		require.NoError(t, err)
		assert.Len(t, outline.Modules, 2)
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)

	// the uncommitted outline never reached redis
	time.Sleep(50 * time.Millisecond)
	_, err = cachedOutline(ctx, cm, course.ID)
	assert.ErrorIs(t, err, cache.ErrCacheNotFound)

	outline, err := courses.GetByIDWithModules(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Len(t, outline.Modules, 1)
	require.Eventually(t, func() bool {
		_, err := cachedOutline(ctx, cm, course.ID)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return modules.Create(ctx, tx, &models.Module{CourseID: course.ID, Title: "second", OrderNumber: 2})
	}))

	// writes inside a transaction do not invalidate before the commit
	stale, err := cachedOutline(ctx, cm, course.ID)
	require.NoError(t, err)
	assert.Len(t, stale.Modules, 1)

	cache.InvalidateCourseCache(ctx, cm, course.ID)
	outline, err = courses.GetByIDWithModules(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Len(t, outline.Modules, 2)
}

func TestModulePostgreSQL_WritesOutsideTransactionInvalidate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cm := newTestCache(t)
	courses := NewCoursePostgreSQL(db, cm)
	modules := NewModulePostgreSQL(db, cm)
	course := seedCourse(t, db, "Go", 0, true, 1)

	_, err := courses.GetByIDWithModules(ctx, nil, course.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := cachedOutline(ctx, cm, course.ID)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, modules.Create(ctx, nil, &models.Module{CourseID: course.ID, Title: "second", OrderNumber: 2}))
	_, err = cachedOutline(ctx, cm, course.ID)
	assert.ErrorIs(t, err, cache.ErrCacheNotFound)

	outline, err := courses.GetByIDWithModules(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Len(t, outline.Modules, 2)
}

func TestModulePostgreSQL_CountsAndRefs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewModulePostgreSQL(db, cache.NewCacheManager(nil))

	a := seedCourse(t, db, "A", 0, true, 3)
	b := seedCourse(t, db, "B", 0, true, 1)

	counts, err := repo.CountByCourses(ctx, nil, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, counts[a.ID])
	assert.Equal(t, 1, counts[b.ID])

	refs, err := repo.ListRefs(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, refs, 4)

	require.NoError(t, repo.Delete(ctx, nil, a.Modules[0].ID))
	n, err := repo.CountByCourse(ctx, nil, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDashboardRepository_ApprovedPayments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	course := seedCourse(t, db, "Go", 50, true, 0)
	payments := NewPaymentPostgreSQL(db)
	dashboard := NewDashboardRepository(db)

	day := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, status := range []models.PaymentStatus{models.PaymentApproved, models.PaymentApproved, models.PaymentRejected} {
		_, err := payments.Create(ctx, nil, &models.Payment{
			UserID:      "u1",
			CourseID:    course.ID,
			MPPaymentID: fmt.Sprintf("mp-%d", i),
			Amount:      50,
			Status:      status,
			PaidAt:      day.Add(time.Duration(i) * 24 * time.Hour),
		})
		require.NoError(t, err)
	}

	total, revenue, err := dashboard.GetApprovedPayments(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.InDelta(t, 100.0, revenue, 0.001)

	trends, err := dashboard.GetRevenueTrends(ctx, nil, day.Add(-time.Hour), day.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, "2024-05-01", trends[0].Date)
	assert.Equal(t, int64(1), trends[0].Payments)
}
