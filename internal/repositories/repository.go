package repositories

import "context"

// Repository aggregates every repository the marketplace needs
type Repository interface {
	// Catalog domain
	Course() CourseRepository
	Module() ModuleRepository
	Section() SectionRepository

	// Learning domain
	Enrollment() EnrollmentRepository
	Progress() ProgressRepository

	// Payments
	Payment() PaymentRepository

	// User domain, backed by Casdoor
	User() UserRepository
	Auth() AuthProvider

	Dashboard() DashboardRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
