package services

import (
	"context"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/mercadopago"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use validator request types
type SignInRequest = validator.SignInRequest
type SignUpRequest = validator.SignUpRequest
type ChangePasswordRequest = validator.ChangePasswordRequest
type ResetPasswordRequest = validator.ResetPasswordRequest
type CourseListQuery = validator.CourseListQuery
type CreateCourseRequest = validator.CourseCreateRequest
type UpdateCourseRequest = validator.CourseUpdateRequest
type CreateModuleRequest = validator.ModuleCreateRequest
type UpdateModuleRequest = validator.ModuleUpdateRequest
type CreateSectionRequest = validator.SectionCreateRequest
type UpdateSectionRequest = validator.SectionUpdateRequest
type CheckoutRequest = validator.CheckoutRequest

type SignUpResponse struct {
	User  *models.User      `json:"user"`
	Token *models.AuthToken `json:"token"`
}

type OAuthURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type OAuthCallbackResponse struct {
	Token    *models.AuthToken `json:"token"`
	Redirect string            `json:"redirect"`
}

type CourseListResponse struct {
	Courses []*models.Course `json:"courses"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	Size    int              `json:"size"`
}

type CourseDetailResponse struct {
	*models.Course
	IsEnrolled bool `json:"is_enrolled"`
}

type CoursePlayerResponse struct {
	Course           *models.Course        `json:"course"`
	CompletedModules []uint                `json:"completed_modules"`
	Progress         models.CourseProgress `json:"progress"`
}

type EnrollResponse struct {
	Enrolled        bool   `json:"enrolled"`
	AlreadyEnrolled bool   `json:"already_enrolled"`
	Message         string `json:"message"`
}

type PreferenceResponse struct {
	PreferenceID     string `json:"preference_id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// WebhookNotification is what the handler extracts from a provider callback
type WebhookNotification struct {
	Type      string
	DataID    string
	Signature string
	RequestID string
}

type WebhookResult struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
}

type InvoiceFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type RevenueTrendResponse struct {
	From   time.Time                       `json:"from"`
	To     time.Time                       `json:"to"`
	Trends []repositories.RevenueTrendData `json:"trends"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	SignIn(ctx context.Context, req *SignInRequest) (*models.AuthToken, error)
	SignUp(ctx context.Context, req *SignUpRequest) (*SignUpResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthToken, error)

	// OAuth delegation
	OAuthURL(ctx context.Context, provider, redirect string) (*OAuthURLResponse, error)
	OAuthCallback(ctx context.Context, code, state string) (*OAuthCallbackResponse, error)

	// Passwords
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *ResetPasswordRequest) error
	ChangePassword(ctx context.Context, user *models.User, req *ChangePasswordRequest) error
	IssueResetToken(userID string) (string, error)

	Me(ctx context.Context, userID string) (*models.User, error)
}

type CourseService interface {
	List(ctx context.Context, query *CourseListQuery) (*CourseListResponse, error)
	Latest(ctx context.Context, limit int) ([]*models.Course, error)
	Categories(ctx context.Context) ([]string, error)
	// GetByID returns a published course outline. viewer may be nil.
	GetByID(ctx context.Context, id uint, viewer *models.User) (*CourseDetailResponse, error)
}

type EnrollmentService interface {
	Enroll(ctx context.Context, user *models.User, courseID uint) (*EnrollResponse, error)
	// EnsureEnrollment inserts the enrollment inside tx unless it exists
	EnsureEnrollment(ctx context.Context, tx *gorm.DB, userID string, courseID uint, source models.EnrollmentSource) (bool, error)
	IsEnrolled(ctx context.Context, userID string, courseID uint) (bool, error)
	ListMyCourses(ctx context.Context, user *models.User) ([]*models.Enrollment, error)
}

type LearningService interface {
	GetCoursePlayer(ctx context.Context, user *models.User, courseID uint) (*CoursePlayerResponse, error)
}

type ProgressService interface {
	UpdateProgress(ctx context.Context, user *models.User, courseID, moduleID uint, completed bool) (*models.CourseProgress, error)
	GetCourseProgress(ctx context.Context, user *models.User) ([]models.CourseProgress, error)
	GetRanking(ctx context.Context) ([]models.CourseRanking, error)
	RefreshRanking(ctx context.Context) error
}

type CheckoutService interface {
	CreatePreference(ctx context.Context, user *models.User, req *CheckoutRequest) (*PreferenceResponse, error)
	HandleWebhook(ctx context.Context, notification WebhookNotification) (*WebhookResult, error)
}

type InvoiceService interface {
	// HandlePaymentApproved is the event consumer for payment.approved
	HandlePaymentApproved(ctx context.Context, event *events.Event) error
	GetInvoice(ctx context.Context, user *models.User, mpPaymentID string) (*InvoiceFile, error)
	Resend(ctx context.Context, mpPaymentID string) error
	RetryPending(ctx context.Context) (int, error)
}

type ProfileService interface {
	GetProfile(ctx context.Context, user *models.User) (*models.Profile, error)
	GetPayments(ctx context.Context, user *models.User) ([]*models.Payment, error)
}

type DashboardService interface {
	GetDashboard(ctx context.Context, user *models.User) (*models.LearnerDashboard, error)
	GetAdminStats(ctx context.Context) (*models.AdminStats, error)
	GetRevenueTrends(ctx context.Context, days int) (*RevenueTrendResponse, error)
}

type AdminService interface {
	// Courses
	ListCourses(ctx context.Context) ([]*models.Course, error)
	CreateCourse(ctx context.Context, req *CreateCourseRequest) (*models.Course, error)
	UpdateCourse(ctx context.Context, id uint, req *UpdateCourseRequest) (*models.Course, error)
	DeleteCourse(ctx context.Context, id uint) error
	SetPublished(ctx context.Context, id uint, published bool) (*models.Course, error)
	UploadImage(ctx context.Context, upload ImageUpload) (string, error)

	// Modules
	ListModules(ctx context.Context, courseID uint) ([]*models.Module, error)
	CreateModule(ctx context.Context, courseID uint, req *CreateModuleRequest) (*models.Module, error)
	UpdateModule(ctx context.Context, moduleID uint, req *UpdateModuleRequest) (*models.Module, error)
	DeleteModule(ctx context.Context, moduleID uint) error

	// Sections
	CreateSection(ctx context.Context, moduleID uint, req *CreateSectionRequest) (*models.Section, error)
	UpdateSection(ctx context.Context, sectionID uint, req *UpdateSectionRequest) (*models.Section, error)
	DeleteSection(ctx context.Context, sectionID uint) error
}

type ReportService interface {
	PaymentsReport(ctx context.Context, from, to *time.Time) ([]byte, error)
	RankingReport(ctx context.Context) ([]byte, error)
}

type SitemapService interface {
	Generate(ctx context.Context) ([]byte, error)
}

// ===== EXTERNAL DEPENDENCIES =====

// PaymentGateway is the part of the MercadoPago API the checkout uses
type PaymentGateway interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest, idempotencyKey string) (*mercadopago.Preference, error)
	GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error)
}

// MarkdownRenderer renders lesson content
type MarkdownRenderer interface {
	Render(source string) (string, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Auth() AuthService
	Course() CourseService
	Enrollment() EnrollmentService
	Learning() LearningService
	Progress() ProgressService
	Checkout() CheckoutService
	Invoice() InvoiceService
	Profile() ProfileService
	Dashboard() DashboardService
	Admin() AdminService
	Report() ReportService
	Sitemap() SitemapService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
