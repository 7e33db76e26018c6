package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/metrics"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/services"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

// RouterConfig holds what the routes need beyond the services
type RouterConfig struct {
	// StorageDir is served read-only at /storage
	StorageDir   string
	Metrics      *metrics.Metrics
	HealthChecks []HealthCheck
}

type HandlerManager struct {
	authHandler      *AuthHandler
	courseHandler    *CourseHandler
	learningHandler  *LearningHandler
	checkoutHandler  *CheckoutHandler
	invoiceHandler   *InvoiceHandler
	userHandler      *UserHandler
	dashboardHandler *DashboardHandler
	adminHandler     *AdminHandler
	siteHandler      *SiteHandler
	authMiddleware   *CasdoorAuthMiddleware
	config           RouterConfig
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	config RouterConfig,
) *HandlerManager {
	return &HandlerManager{
		authHandler:      NewAuthHandler(serviceManager.Auth(), logger),
		courseHandler:    NewCourseHandler(serviceManager.Course(), serviceManager.Enrollment(), logger),
		learningHandler:  NewLearningHandler(serviceManager.Learning(), serviceManager.Enrollment(), serviceManager.Progress(), logger),
		checkoutHandler:  NewCheckoutHandler(serviceManager.Checkout(), logger),
		invoiceHandler:   NewInvoiceHandler(serviceManager.Invoice(), logger),
		userHandler:      NewUserHandler(serviceManager.Profile(), logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		adminHandler:     NewAdminHandler(serviceManager.Admin(), serviceManager.Report(), logger),
		siteHandler:      NewSiteHandler(serviceManager.Sitemap(), config.HealthChecks, logger),
		authMiddleware:   authMiddleware,
		config:           config,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	auth := hm.authMiddleware.AuthMiddleware()
	adminOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

	router.Use(hm.authMiddleware.PageGuardMiddleware())

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/signin", hm.authHandler.SignIn)
			authRoutes.POST("/signup", hm.authHandler.SignUp)
			authRoutes.POST("/refresh", hm.authHandler.Refresh)
			authRoutes.GET("/oauth/:provider/url", hm.authHandler.OAuthURL)
			authRoutes.GET("/oauth/callback", hm.authHandler.OAuthCallback)
			authRoutes.POST("/password/forgot", hm.authHandler.ForgotPassword)
			authRoutes.POST("/password/reset", hm.authHandler.ResetPassword)

			authRoutes.PUT("/password", auth, hm.authHandler.ChangePassword)
			authRoutes.GET("/me", auth, hm.authHandler.Me)
		}

		// Catalog routes - public, enrollment needs a session
		courses := v1.Group("/courses")
		{
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/latest", hm.courseHandler.LatestCourses)
			courses.GET("/categories", hm.courseHandler.Categories)
			courses.GET("/:id", hm.authMiddleware.OptionalAuthMiddleware(), hm.courseHandler.GetCourse)
			courses.POST("/:id/enroll", auth, hm.courseHandler.Enroll)
		}

		v1.GET("/ranking", hm.learningHandler.Ranking)
		v1.POST("/payments/webhook", hm.checkoutHandler.Webhook)

		// Learning routes
		learning := v1.Group("/learning", auth)
		{
			learning.GET("/courses", hm.learningHandler.MyCourses)
			learning.GET("/courses/:id", hm.learningHandler.GetCoursePlayer)
			learning.PUT("/courses/:id/modules/:module_id/progress", hm.learningHandler.UpdateProgress)
		}

		v1.POST("/checkout/preferences", auth, hm.checkoutHandler.CreatePreference)

		invoices := v1.Group("/invoices", auth)
		{
			invoices.GET("", hm.invoiceHandler.GetInvoiceByQuery)
			invoices.GET("/:payment_id", hm.invoiceHandler.GetInvoice)
		}

		me := v1.Group("/me", auth)
		{
			me.GET("/profile", hm.userHandler.GetProfile)
			me.GET("/payments", hm.userHandler.GetPayments)
			me.GET("/dashboard", hm.dashboardHandler.GetDashboard)
		}

		// Admin routes - Admins only
		admin := v1.Group("/admin", auth, adminOnly)
		{
			admin.GET("/courses", hm.adminHandler.ListCourses)
			admin.POST("/courses", hm.adminHandler.CreateCourse)
			admin.POST("/courses/images", hm.adminHandler.UploadImage)
			admin.PUT("/courses/:id", hm.adminHandler.UpdateCourse)
			admin.DELETE("/courses/:id", hm.adminHandler.DeleteCourse)
			admin.PATCH("/courses/:id/publish", hm.adminHandler.SetPublished)

			admin.GET("/courses/:id/modules", hm.adminHandler.ListModules)
			admin.POST("/courses/:id/modules", hm.adminHandler.CreateModule)
			admin.PUT("/modules/:module_id", hm.adminHandler.UpdateModule)
			admin.DELETE("/modules/:module_id", hm.adminHandler.DeleteModule)

			admin.POST("/modules/:module_id/sections", hm.adminHandler.CreateSection)
			admin.PUT("/sections/:section_id", hm.adminHandler.UpdateSection)
			admin.DELETE("/sections/:section_id", hm.adminHandler.DeleteSection)

			admin.GET("/reports/payments.xlsx", hm.adminHandler.PaymentsReport)
			admin.GET("/reports/ranking.xlsx", hm.adminHandler.RankingReport)

			admin.GET("/dashboard/stats", hm.dashboardHandler.GetAdminStats)
			admin.GET("/dashboard/revenue-trends", hm.dashboardHandler.GetRevenueTrends)

			admin.POST("/invoices/:payment_id/resend", hm.invoiceHandler.Resend)
		}
	}

	router.GET("/sitemap.xml", hm.siteHandler.Sitemap)
	router.GET("/health", hm.siteHandler.Health)

	if hm.config.Metrics != nil {
		router.GET("/metrics", hm.config.Metrics.Handler())
	}
	if hm.config.StorageDir != "" {
		router.Static("/storage", hm.config.StorageDir)
	}
}
