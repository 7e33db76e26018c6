package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/cache"
	"github.com/SAP-F-2025/course-marketplace/internal/mailer"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

const (
	resetPurpose         = "password_reset"
	defaultLoginRedirect = "/dashboard"
)

// AuthConfig configures reset links and tokens
type AuthConfig struct {
	SiteURL          string
	ResetTokenSecret string
	ResetTokenTTL    time.Duration
}

type resetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type oauthState struct {
	Provider string `json:"provider"`
	Redirect string `json:"redirect"`
}

type authService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	states    *cache.CacheHelper
	mailer    mailer.Sender
	config    AuthConfig
}

func NewAuthService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, cacheManager *cache.CacheManager, sender mailer.Sender, config AuthConfig) AuthService {
	if config.ResetTokenTTL <= 0 {
		config.ResetTokenTTL = time.Hour
	}
	return &authService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		states:    cacheManager.State,
		mailer:    sender,
		config:    config,
	}
}

func authError(err error, op string) error {
	switch {
	case errors.Is(err, repositories.ErrInvalidCredentials):
		return ErrInvalidCredentials
	case errors.Is(err, repositories.ErrUserExists):
		return ErrEmailTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ===== SESSIONS =====

func (s *authService) SignIn(ctx context.Context, req *SignInRequest) (*models.AuthToken, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	token, err := s.repo.Auth().SignIn(ctx, strings.ToLower(req.Email), req.Password)
	if err != nil {
		s.logger.Info("Sign in rejected", "email", req.Email, "error", err)
		return nil, authError(err, "sign in failed")
	}
	return token, nil
}

func (s *authService) SignUp(ctx context.Context, req *SignUpRequest) (*SignUpResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := strings.ToLower(req.Email)
	user, err := s.repo.Auth().SignUp(ctx, repositories.SignUpInput{
		Email:    email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return nil, authError(err, "sign up failed")
	}
	s.logger.Info("User signed up", "user_id", user.ID)

	token, err := s.repo.Auth().SignIn(ctx, email, req.Password)
	if err != nil {
		return nil, authError(err, "sign in after sign up failed")
	}
	return &SignUpResponse{User: user, Token: token}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.AuthToken, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, validator.ValidationErrors{{Field: "refresh_token", Message: "refresh_token is required", Rule: "required"}}
	}
	token, err := s.repo.Auth().Refresh(ctx, refreshToken)
	if err != nil {
		return nil, authError(err, "refresh failed")
	}
	return token, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound, "failed to get user")
	}
	return user, nil
}

// ===== OAUTH =====

// safeRedirect keeps post-login redirects on this site
func safeRedirect(redirect string) string {
	if redirect == "" || !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") || strings.Contains(redirect, `\`) {
		return defaultLoginRedirect
	}
	return redirect
}

func (s *authService) OAuthURL(ctx context.Context, provider, redirect string) (*OAuthURLResponse, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return nil, validator.ValidationErrors{{Field: "provider", Message: "provider is required", Rule: "required"}}
	}

	// without redis the callback could never match the state
	if !s.states.Available() {
		s.logger.Warn("OAuth state store unavailable, refusing to start login", "provider", provider)
		return nil, fmt.Errorf("%w: oauth state store", ErrUnavailable)
	}

	state := uuid.NewString()
	if err := s.states.Set(ctx, state, oauthState{Provider: provider, Redirect: safeRedirect(redirect)}, cache.StateCacheConfig.TTL); err != nil {
		return nil, fmt.Errorf("failed to store oauth state: %w", err)
	}

	return &OAuthURLResponse{
		URL:   s.repo.Auth().AuthCodeURL(provider, state),
		State: state,
	}, nil
}

func (s *authService) OAuthCallback(ctx context.Context, code, state string) (*OAuthCallbackResponse, error) {
	if code == "" || state == "" {
		return nil, ErrInvalidOAuthState
	}

	var stored oauthState
	if err := s.states.Take(ctx, state, &stored); err != nil {
		s.logger.Info("Unknown oauth state", "error", err)
		return nil, ErrInvalidOAuthState
	}

	token, err := s.repo.Auth().Exchange(ctx, code)
	if err != nil {
		return nil, authError(err, "code exchange failed")
	}
	return &OAuthCallbackResponse{Token: token, Redirect: safeRedirect(stored.Redirect)}, nil
}

// ===== PASSWORDS =====

func (s *authService) IssueResetToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, resetClaims{
		Purpose: resetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.ResetTokenTTL)),
		},
	})
	signed, err := token.SignedString([]byte(s.config.ResetTokenSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return signed, nil
}

func (s *authService) parseResetToken(raw string) (string, error) {
	claims := &resetClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.ResetTokenSecret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidResetToken
	}
	if claims.Purpose != resetPurpose || claims.Subject == "" {
		return "", ErrInvalidResetToken
	}
	return claims.Subject, nil
}

// ForgotPassword emails a reset link when the account exists. It never reports whether it does.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validator.Validate(&validator.ForgotPasswordRequest{Email: email}); err != nil {
		return err
	}

	user, err := s.repo.User().GetByEmail(ctx, email)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			s.logger.Error("Failed to look up user for password reset", "error", err)
		}
		return nil
	}

	token, err := s.IssueResetToken(user.ID)
	if err != nil {
		s.logger.Error("Failed to issue reset token", "user_id", user.ID, "error", err)
		return nil
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.config.SiteURL, url.QueryEscape(token))
	err = s.mailer.Send(ctx, mailer.Message{
		ToEmail: user.Email,
		ToName:  user.DisplayName,
		Subject: "Restablecer contraseña",
		HTML: fmt.Sprintf(`<p>Recibimos un pedido para restablecer tu contraseña.</p><p><a href="%s">Elegir una nueva contraseña</a></p><p>El enlace vence en %s.</p>`,
			html.EscapeString(link), s.config.ResetTokenTTL),
		Text: "Para restablecer tu contraseña abrí este enlace: " + link,
	})
	if err != nil {
		s.logger.Error("Failed to send password reset email", "user_id", user.ID, "error", err)
		return nil
	}

	s.logger.Info("Password reset email sent", "user_id", user.ID)
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	userID, err := s.parseResetToken(req.Token)
	if err != nil {
		return err
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.repo.Auth().SetPassword(ctx, user, "", req.Password); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	s.repo.User().InvalidateCache(ctx, user)

	s.logger.Info("Password reset", "user_id", user.ID)
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, user *models.User, req *ChangePasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if err := s.repo.Auth().SetPassword(ctx, user, req.OldPassword, req.NewPassword); err != nil {
		return authError(err, "failed to change password")
	}
	s.repo.User().InvalidateCache(ctx, user)

	s.logger.Info("Password changed", "user_id", user.ID)
	return nil
}
