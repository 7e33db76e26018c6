package validator

import (
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

const (
	MaxCoursePrice      = 10_000_000
	MaxMarkdownBytes    = 100 * 1024
	MaxImageUploadBytes = 5 << 20
)

// AllowedImageTypes maps accepted upload content types to file extensions
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()
	return bv
}

// Validate validates struct tags, including the custom rules
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateCourseCreate validates a new course
func (bv *BusinessValidator) ValidateCourseCreate(req *CourseCreateRequest) ValidationErrors {
	errors := bv.Validate(req)
	if strings.TrimSpace(req.ImageURL) != "" && !strings.HasPrefix(req.ImageURL, "http://") && !strings.HasPrefix(req.ImageURL, "https://") {
		errors = append(errors, ValidationError{
			Field:   "image_url",
			Message: "must be an absolute http(s) URL",
			Value:   req.ImageURL,
			Rule:    "business_logic",
		})
	}
	return errors
}

// ValidateCourseUpdate validates a partial course update
func (bv *BusinessValidator) ValidateCourseUpdate(req *CourseUpdateRequest) ValidationErrors {
	errors := bv.Validate(req)
	if req.ImageURL != nil && strings.TrimSpace(*req.ImageURL) != "" &&
		!strings.HasPrefix(*req.ImageURL, "http://") && !strings.HasPrefix(*req.ImageURL, "https://") {
		errors = append(errors, ValidationError{
			Field:   "image_url",
			Message: "must be an absolute http(s) URL",
			Value:   *req.ImageURL,
			Rule:    "business_logic",
		})
	}
	return errors
}

// ValidateImageUpload checks content type and size of a course image
func (bv *BusinessValidator) ValidateImageUpload(contentType string, size int64) ValidationErrors {
	var errors ValidationErrors

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	if _, ok := AllowedImageTypes[strings.ToLower(mediaType)]; !ok {
		errors = append(errors, ValidationError{
			Field:   "file",
			Message: "must be a jpeg, png, webp or gif image",
			Value:   contentType,
			Rule:    "image_type",
		})
	}
	if size <= 0 || size > MaxImageUploadBytes {
		errors = append(errors, ValidationError{
			Field:   "file",
			Message: "must be between 1 byte and 5MB",
			Value:   size,
			Rule:    "image_size",
		})
	}
	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Course title (1-200 characters after trimming)
	bv.validate.RegisterValidation("course_title", func(fl validator.FieldLevel) bool {
		n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
		return n >= 1 && n <= 200
	})

	bv.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		return models.Difficulty(fl.Field().String()).Valid()
	})

	bv.validate.RegisterValidation("price_range", func(fl validator.FieldLevel) bool {
		price := fl.Field().Float()
		return price >= 0 && price <= MaxCoursePrice
	})

	bv.validate.RegisterValidation("order_number", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() >= 1
	})

	bv.validate.RegisterValidation("markdown_content", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxMarkdownBytes
	})
}
