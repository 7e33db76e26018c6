package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/markdown"
	"github.com/SAP-F-2025/course-marketplace/internal/mercadopago"
	"github.com/SAP-F-2025/course-marketplace/internal/metrics"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories/postgres"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

var (
	student = &models.User{ID: "student-1", Name: "ana", DisplayName: "Ana", Email: "ana@example.com", Role: models.RoleStudent}
	admin   = &models.User{ID: "admin-1", Name: "root", DisplayName: "Admin", Email: "admin@example.com", Role: models.RoleAdmin}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv wires the real gorm repositories on sqlite with fake external systems
type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	cache     *cache.CacheManager
	users     *fakeUsers
	auth      *fakeAuth
	gateway   *fakeGateway
	publisher *events.MockEventPublisher
	mailer    *mailer.ConsoleSender
	metrics   *metrics.Metrics
	validator *validator.Validator
	logger    *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithCache(t, nil)
}

func newTestEnvWithRedis(t *testing.T) *testEnv {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return newTestEnvWithCache(t, client)
}

func newTestEnvWithCache(t *testing.T, client *redis.Client) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return newTestEnvOn(t, fmt.Sprintf("file:%s?mode=memory&cache=shared", name), client)
}

// newDiskTestEnv uses a WAL database file so readers on other connections
// see committed rows while a write transaction is open.
func newDiskTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	return newTestEnvOn(t, dsn, client)
}

func newTestEnvOn(t *testing.T, dsn string, client *redis.Client) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	users := newFakeUsers(student, admin)
	auth := &fakeAuth{users: users, passwords: map[string]string{}}
	cm := cache.NewCacheManager(client)
	log := discardLogger()

	return &testEnv{
		db: db,
		repo: postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{
			DB:             db,
			CacheManager:   cm,
			UserRepository: users,
			AuthProvider:   auth,
		}),
		cache:     cm,
		users:     users,
		auth:      auth,
		gateway:   newFakeGateway(),
		publisher: events.NewMockEventPublisher(log),
		mailer:    mailer.NewConsoleSender(log),
		metrics:   metrics.New(nil),
		validator: validator.New(),
		logger:    log,
	}
}

func (e *testEnv) enrollments() EnrollmentService {
	return NewEnrollmentService(e.repo, e.db, e.logger, e.metrics)
}

func (e *testEnv) progress() ProgressService {
	return NewProgressService(e.repo, e.db, e.logger, e.cache)
}

func (e *testEnv) learning() LearningService {
	return NewLearningService(e.repo, e.db, e.logger, markdown.NewRenderer())
}

func (e *testEnv) checkout(secret string) CheckoutService {
	return NewCheckoutService(e.repo, e.db, e.logger, e.validator, e.gateway, e.publisher, e.enrollments(), e.metrics, CheckoutConfig{
		SiteURL:       "https://cursos.test",
		Currency:      "ARS",
		WebhookSecret: secret,
		InvoiceTopic:  "payment.approved",
	})
}

func (e *testEnv) invoices() InvoiceService {
	return NewInvoiceService(e.repo, e.db, e.logger, e.mailer, e.publisher, e.metrics, "payment.approved")
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
				{Title: "intro", Content: "# Hola\n\nPrimera lección", OrderNumber: 1},
			},
		})
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func enroll(t *testing.T, db *gorm.DB, userID string, courseID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Enrollment{UserID: userID, CourseID: courseID, Source: models.EnrollmentFree}).Error)
}

func seedPayment(t *testing.T, db *gorm.DB, userID string, courseID uint, mpID string, paidAt time.Time) *models.Payment {
	t.Helper()
	p := &models.Payment{
		UserID:      userID,
		CourseID:    courseID,
		MPPaymentID: mpID,
		Amount:      1500,
		Currency:    "ARS",
		Status:      models.PaymentApproved,
		PayerEmail:  "ana@example.com",
		PaidAt:      paidAt,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// ===== FAKES =====

type fakeUsers struct {
	mu          sync.Mutex
	byID        map[string]*models.User
	invalidated int
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*models.User{}}
	for _, u := range users {
		f.add(u)
	}
	return f
}

func (f *fakeUsers) add(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *u
	f.byID[u.ID] = &copied
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, err := f.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUsers) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	u, err := f.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.Role == role, nil
}

func (f *fakeUsers) InvalidateCache(ctx context.Context, user *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

type fakeAuth struct {
	mu        sync.Mutex
	users     *fakeUsers
	passwords map[string]string
}

func (f *fakeAuth) token(email string) *models.AuthToken {
	return &models.AuthToken{AccessToken: "access-" + email, RefreshToken: "refresh-" + email, TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour)}
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*models.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.passwords[email]; !ok || pw != password {
		return nil, repositories.ErrInvalidCredentials
	}
	return f.token(email), nil
}

func (f *fakeAuth) SignUp(ctx context.Context, input repositories.SignUpInput) (*models.User, error) {
	if exists, _ := f.users.ExistsByEmail(ctx, input.Email); exists {
		return nil, repositories.ErrUserExists
	}
	user := &models.User{ID: "user-" + input.Email, Name: input.Email, DisplayName: input.Name, Email: input.Email, Role: models.RoleStudent}
	f.users.add(user)

	f.mu.Lock()
	f.passwords[input.Email] = input.Password
	f.mu.Unlock()
	return user, nil
}

func (f *fakeAuth) AuthCodeURL(provider, state string) string {
	return "https://auth.test/login/oauth/authorize?provider=" + provider + "&state=" + state
}

func (f *fakeAuth) Exchange(ctx context.Context, code string) (*models.AuthToken, error) {
	if code != "good-code" {
		return nil, repositories.ErrInvalidCredentials
	}
	return f.token("oauth@example.com"), nil
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*models.AuthToken, error) {
	email, ok := strings.CutPrefix(refreshToken, "refresh-")
	if !ok {
		return nil, repositories.ErrInvalidCredentials
	}
	return f.token(email), nil
}

func (f *fakeAuth) SetPassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if oldPassword != "" && f.passwords[user.Email] != oldPassword {
		return repositories.ErrInvalidCredentials
	}
	f.passwords[user.Email] = newPassword
	return nil
}

type fakeGateway struct {
	mu          sync.Mutex
	preferences []mercadopago.PreferenceRequest
	payments    map[string]*mercadopago.Payment
	err         error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]*mercadopago.Payment{}}
}

func (f *fakeGateway) CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest, idempotencyKey string) (*mercadopago.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.preferences = append(f.preferences, req)
	id := fmt.Sprintf("pref-%d", len(f.preferences))
	return &mercadopago.Preference{ID: id, InitPoint: "https://mp.test/checkout/" + id}, nil
}

func (f *fakeGateway) GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.payments[id]
	if !ok {
		return nil, fmt.Errorf("%w: payment %s not found", mercadopago.ErrProvider, id)
	}
	return p, nil
}

func approvedPayment(id int64, userID string, courseID uint) *mercadopago.Payment {
	approved := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	p := &mercadopago.Payment{
		ID:                id,
		Status:            "approved",
		TransactionAmount: 1500,
		CurrencyID:        "ARS",
		DateApproved:      &approved,
		Metadata: map[string]interface{}{
			"user_id":   userID,
			"course_id": float64(courseID),
		},
		Raw: []byte(`{"id":1}`),
	}
	p.Payer.Email = "ana@example.com"
	return p
}
