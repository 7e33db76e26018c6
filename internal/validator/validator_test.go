package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestValidator_CourseCreate(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		req       CourseCreateRequest
		wantRules []string
	}{
		{
			name: "ok",
			req:  CourseCreateRequest{Title: "Go", Difficulty: models.DifficultyBeginner, Price: 10},
		},
		{
			name:      "blank title",
			req:       CourseCreateRequest{Title: "   ", Difficulty: models.DifficultyBeginner},
			wantRules: []string{"course_title"},
		},
		{
			name:      "bad difficulty and price",
			req:       CourseCreateRequest{Title: "Go", Difficulty: "expert", Price: -1},
			wantRules: []string{"difficulty_level", "price_range"},
		},
		{
			name:      "relative image url",
			req:       CourseCreateRequest{Title: "Go", Difficulty: models.DifficultyAdvanced, ImageURL: "img.png"},
			wantRules: []string{"business_logic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.GetBusinessValidator().ValidateCourseCreate(&tt.req)
			var rules []string
			for _, e := range errs {
				rules = append(rules, e.Rule)
			}
			assert.ElementsMatch(t, tt.wantRules, rules)
		})
	}
}

func TestValidator_ReportsJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Validate(&ChangePasswordRequest{OldPassword: "secret1", NewPassword: "secret1"})
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "new_password", verrs[0].Field)
	assert.Equal(t, "nefield", verrs[0].Rule)
}

func TestValidator_NilOnSuccess(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&CheckoutRequest{CourseID: 1}))
	assert.NoError(t, v.Validate(&ModuleUpdateRequest{}))
	assert.Error(t, v.Validate(&ModuleUpdateRequest{OrderNumber: ptr(0)}))
}

func TestValidator_Markdown(t *testing.T) {
	v := New()
	big := strings.Repeat("a", MaxMarkdownBytes+1)
	assert.Error(t, v.Validate(&SectionCreateRequest{Title: "s", Content: big}))
	assert.NoError(t, v.Validate(&SectionCreateRequest{Title: "s", Content: "# ok"}))
}

func TestBusinessValidator_ValidateImageUpload(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name        string
		contentType string
		size        int64
		wantErrs    int
	}{
		{"png", "image/png", 1024, 0},
		{"jpeg with params", "image/jpeg; charset=binary", 1024, 0},
		{"pdf", "application/pdf", 1024, 1},
		{"too big", "image/webp", MaxImageUploadBytes + 1, 1},
		{"empty svg", "image/svg+xml", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, bv.ValidateImageUpload(tt.contentType, tt.size), tt.wantErrs)
		})
	}
}
