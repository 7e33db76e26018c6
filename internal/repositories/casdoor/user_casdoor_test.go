package casdoor

import (
	"net/url"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name string
		user *casdoorsdk.User
		want models.UserRole
	}{
		{"admin flag", &casdoorsdk.User{IsAdmin: true}, models.RoleAdmin},
		{"admin role", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "Administrator"}}}, models.RoleAdmin},
		{"admin property", &casdoorsdk.User{Properties: map[string]string{"role": "admin"}}, models.RoleAdmin},
		{"other role", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "editor"}, nil}}, models.RoleStudent},
		{"plain user", &casdoorsdk.User{}, models.RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRole(tt.user); got != tt.want {
				t.Errorf("ResolveRole() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvertUser(t *testing.T) {
	assert.Nil(t, ConvertUser(nil))

	user := ConvertUser(&casdoorsdk.User{
		Id:          "u-1",
		Name:        "ana",
		Email:       "ana@example.com",
		Avatar:      "https://cdn/a.png",
		CreatedTime: "2024-03-01T10:00:00Z",
	})
	require.NotNil(t, user)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "ana", user.DisplayName)
	assert.Equal(t, models.RoleStudent, user.Role)
	require.NotNil(t, user.AvatarURL)
	assert.Equal(t, "https://cdn/a.png", *user.AvatarURL)
	assert.Equal(t, 2024, user.CreatedAt.Year())

	noAvatar := ConvertUser(&casdoorsdk.User{Id: "u-2", DisplayName: "Bob"})
	assert.Nil(t, noAvatar.AvatarURL)
	assert.Equal(t, "Bob", noAvatar.DisplayName)
}

func TestAuthCodeURL(t *testing.T) {
	provider := NewAuthCasdoor(CasdoorConfig{
		Endpoint:    "https://auth.example.com/",
		ClientID:    "client",
		RedirectURL: "https://api.example.com/api/v1/auth/oauth/callback",
	})

	raw := provider.AuthCodeURL("google", "state-1")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "auth.example.com", parsed.Host)
	assert.Equal(t, "/login/oauth/authorize", parsed.Path)
	q := parsed.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "google", q.Get("provider"))
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
}
