package validator

import "github.com/SAP-F-2025/course-marketplace/internal/models"

// ===== AUTH =====

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Name     string `json:"name" validate:"max=100"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=128,nefield=OldPassword"`
}

// ===== CATALOG =====

type CourseListQuery struct {
	Category   string   `form:"category" validate:"max=100"`
	Difficulty string   `form:"difficulty" validate:"omitempty,difficulty_level"`
	MinPrice   *float64 `form:"min_price" validate:"omitempty,price_range"`
	MaxPrice   *float64 `form:"max_price" validate:"omitempty,price_range"`
	Query      string   `form:"q" validate:"max=200"`
	Page       int      `form:"page" validate:"omitempty,min=1"`
	Size       int      `form:"size" validate:"omitempty,min=1,max=100"`
	SortBy     string   `form:"sort_by" validate:"omitempty,oneof=created_at price title"`
	SortOrder  string   `form:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// ===== ADMIN CONTENT =====

type CourseCreateRequest struct {
	Title       string            `json:"title" validate:"required,course_title"`
	Description string            `json:"description" validate:"max=5000"`
	Category    string            `json:"category" validate:"max=100"`
	Difficulty  models.Difficulty `json:"difficulty" validate:"required,difficulty_level"`
	Price       float64           `json:"price" validate:"price_range"`
	ImageURL    string            `json:"image_url" validate:"max=500"`
	Published   bool              `json:"published"`
}

type CourseUpdateRequest struct {
	Title       *string            `json:"title" validate:"omitempty,course_title"`
	Description *string            `json:"description" validate:"omitempty,max=5000"`
	Category    *string            `json:"category" validate:"omitempty,max=100"`
	Difficulty  *models.Difficulty `json:"difficulty" validate:"omitempty,difficulty_level"`
	Price       *float64           `json:"price" validate:"omitempty,price_range"`
	ImageURL    *string            `json:"image_url" validate:"omitempty,max=500"`
	Published   *bool              `json:"published"`
}

type PublishRequest struct {
	Published *bool `json:"published" validate:"required"`
}

type ModuleCreateRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	OrderNumber *int   `json:"order_number" validate:"omitempty,order_number"`
}

type ModuleUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	OrderNumber *int    `json:"order_number" validate:"omitempty,order_number"`
}

type SectionCreateRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Content     string `json:"content" validate:"markdown_content"`
	OrderNumber *int   `json:"order_number" validate:"omitempty,order_number"`
}

type SectionUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content     *string `json:"content" validate:"omitempty,markdown_content"`
	OrderNumber *int    `json:"order_number" validate:"omitempty,order_number"`
}

// ===== LEARNING & CHECKOUT =====

type ProgressUpdateRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

type CheckoutRequest struct {
	CourseID uint `json:"course_id" validate:"required,gt=0"`
}
