package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

func newAuth(env *testEnv) AuthService {
	return NewAuthService(env.repo, env.db, env.logger, env.validator, env.cache, env.mailer, AuthConfig{
		SiteURL:          "https://cursos.test",
		ResetTokenSecret: "reset-secret",
	})
}

func TestAuthService_SignUpAndSignIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newAuth(env)

	resp, err := svc.SignUp(ctx, &SignUpRequest{Email: "New@Example.com", Password: "secret1", Name: "Nuevo"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.Token.AccessToken)

	_, err = svc.SignUp(ctx, &SignUpRequest{Email: "new@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.SignIn(ctx, &SignInRequest{Email: "NEW@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, &SignInRequest{Email: "new@example.com", Password: "wrong-pw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, &SignInRequest{Email: "not-an-email", Password: "secret1"})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestAuthService_RefreshAndMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newAuth(env)

	token, err := svc.Refresh(ctx, "refresh-ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "access-ana@example.com", token.AccessToken)

	_, err = svc.Refresh(ctx, "  ")
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = svc.Refresh(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	me, err := svc.Me(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, student.Email, me.Email)

	_, err = svc.Me(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/dashboard"},
		{"/mis-cursos", "/mis-cursos"},
		{"/curso/3?tab=1", "/curso/3?tab=1"},
		{"https://evil.test", "/dashboard"},
		{"//evil.test", "/dashboard"},
		{`/\evil.test`, "/dashboard"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeRedirect(tt.in), tt.in)
	}
}

func TestAuthService_OAuth(t *testing.T) {
	env := newTestEnvWithRedis(t)
	ctx := context.Background()
	svc := newAuth(env)

	_, err := svc.OAuthURL(ctx, "", "/perfil")
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	start, err := svc.OAuthURL(ctx, "Google", "/perfil")
	require.NoError(t, err)
	require.NotEmpty(t, start.State)
	u, err := url.Parse(start.URL)
	require.NoError(t, err)
	assert.Equal(t, "google", u.Query().Get("provider"))
	assert.Equal(t, start.State, u.Query().Get("state"))

	_, err = svc.OAuthCallback(ctx, "good-code", "unknown-state")
	assert.ErrorIs(t, err, ErrInvalidOAuthState)

	done, err := svc.OAuthCallback(ctx, "good-code", start.State)
	require.NoError(t, err)
	assert.Equal(t, "/perfil", done.Redirect)
	assert.NotEmpty(t, done.Token.AccessToken)

	// states are single use
	_, err = svc.OAuthCallback(ctx, "good-code", start.State)
	assert.ErrorIs(t, err, ErrInvalidOAuthState)

	again, err := svc.OAuthURL(ctx, "github", "https://evil.test")
	require.NoError(t, err)
	_, err = svc.OAuthCallback(ctx, "bad-code", again.State)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_OAuthWithoutStateStore(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuth(env)

	start, err := svc.OAuthURL(context.Background(), "google", "/perfil")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, start)
}

func TestAuthService_PasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newAuth(env)
	env.auth.passwords[student.Email] = "old-password"

	// unknown accounts are not disclosed
	require.NoError(t, svc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Empty(t, env.mailer.SentMessages())

	require.NoError(t, svc.ForgotPassword(ctx, "ANA@example.com"))
	sent := env.mailer.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, student.Email, sent[0].ToEmail)
	assert.Equal(t, "Restablecer contraseña", sent[0].Subject)

	_, raw, ok := strings.Cut(sent[0].Text, "token=")
	require.True(t, ok)
	token, err := url.QueryUnescape(strings.TrimSpace(raw))
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, &ResetPasswordRequest{Token: token, Password: "brand-new"}))
	assert.Equal(t, "brand-new", env.auth.passwords[student.Email])
	assert.Equal(t, 1, env.users.invalidated)

	err = svc.ResetPassword(ctx, &ResetPasswordRequest{Token: token + "x", Password: "brand-new"})
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestAuthService_ResetTokenRejectsForeignTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newAuth(env)

	sign := func(claims jwt.Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong secret", token: sign(resetClaims{Purpose: resetPurpose, RegisteredClaims: jwt.RegisteredClaims{Subject: student.ID, ExpiresAt: future}}, "other")},
		{name: "wrong purpose", token: sign(resetClaims{Purpose: "login", RegisteredClaims: jwt.RegisteredClaims{Subject: student.ID, ExpiresAt: future}}, "reset-secret")},
		{name: "expired", token: sign(resetClaims{Purpose: resetPurpose, RegisteredClaims: jwt.RegisteredClaims{Subject: student.ID, ExpiresAt: past}}, "reset-secret")},
		{name: "unknown user", token: sign(resetClaims{Purpose: resetPurpose, RegisteredClaims: jwt.RegisteredClaims{Subject: "ghost", ExpiresAt: future}}, "reset-secret")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ResetPassword(ctx, &ResetPasswordRequest{Token: tt.token, Password: "brand-new"})
			assert.ErrorIs(t, err, ErrInvalidResetToken)
		})
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newAuth(env)
	env.auth.passwords[student.Email] = "old-password"

	err := svc.ChangePassword(ctx, student, &ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, student, &ChangePasswordRequest{OldPassword: "old-password", NewPassword: "old-password"})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	require.NoError(t, svc.ChangePassword(ctx, student, &ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"}))
	assert.Equal(t, "new-password", env.auth.passwords[student.Email])
}
