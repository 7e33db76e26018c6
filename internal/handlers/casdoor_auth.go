package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories/casdoor"
	"github.com/SAP-F-2025/course-marketplace/internal/utils"
)

// Pages that need a session. HTML requests without one go to the login page.
var protectedPagePrefixes = []string{"/dashboard", "/mis-cursos", "/checkout", "/perfil", "/admin"}

var errNoToken = errors.New("authorization header missing")

// Authenticator resolves a bearer token to a user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// CasdoorAuthenticator validates Casdoor JWTs and loads the account behind them
type CasdoorAuthenticator struct {
	client   *casdoorsdk.Client
	userRepo repositories.UserRepository
}

func NewCasdoorAuthenticator(cfg casdoor.CasdoorConfig, userRepo repositories.UserRepository) *CasdoorAuthenticator {
	return &CasdoorAuthenticator{
		client:   casdoor.NewClient(cfg),
		userRepo: userRepo,
	}
}

func (a *CasdoorAuthenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := a.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Id == "" {
		return nil, errors.New("invalid user ID in token")
	}

	user, err := a.userRepo.GetByID(ctx, claims.Id)
	if err != nil {
		// the token itself carries the account
		user = casdoor.ConvertUser(&claims.User)
	}
	return user, nil
}

// CasdoorAuthMiddleware puts the session user into the gin context
type CasdoorAuthMiddleware struct {
	authenticator Authenticator
	siteURL       string
	logger        utils.Logger
}

func NewCasdoorAuthMiddleware(authenticator Authenticator, siteURL string, logger utils.Logger) *CasdoorAuthMiddleware {
	return &CasdoorAuthMiddleware{
		authenticator: authenticator,
		siteURL:       strings.TrimRight(siteURL, "/"),
		logger:        logger,
	}
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errNoToken
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}

func (cam *CasdoorAuthMiddleware) authenticate(c *gin.Context) (*models.User, error) {
	token, err := bearerToken(c)
	if err != nil {
		return nil, err
	}
	return cam.authenticator.Authenticate(c.Request.Context(), token)
}

func setUser(c *gin.Context, user *models.User) {
	c.Set("user_id", user.ID)
	c.Set("user", user)
	c.Set("user_role", user.Role)
	c.Set("user_email", user.Email)
}

// AuthMiddleware rejects requests without a valid session
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := cam.authenticate(c)
		if err != nil {
			utils.GetLogger(c, cam.logger).Debug("Unauthenticated request", "path", c.Request.URL.Path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "unauthorized",
				Details: err.Error(),
			})
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the user when a valid token is present
func (cam *CasdoorAuthMiddleware) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := cam.authenticate(c); err == nil {
			setUser(c, user)
		}
		c.Next()
	}
}

// PageGuardMiddleware redirects browsers without a session away from protected pages
func (cam *CasdoorAuthMiddleware) PageGuardMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !isProtectedPage(path) || !strings.Contains(c.GetHeader("Accept"), "text/html") {
			c.Next()
			return
		}

		if user, err := cam.authenticate(c); err == nil {
			setUser(c, user)
			c.Next()
			return
		}

		c.Redirect(http.StatusFound, cam.siteURL+"/login?redirectedFrom="+url.QueryEscape(path))
		c.Abort()
	}
}

func isProtectedPage(path string) bool {
	for _, prefix := range protectedPagePrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// RequireRoleMiddleware checks if user has required role
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetUserRoleFromContext(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "forbidden",
				Details: err.Error(),
			})
			return
		}

		for _, required := range requiredRoles {
			if role == required {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Message: "forbidden",
			Details: fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
		})
	}
}

// GetUserFromContext extracts user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

// GetUserRoleFromContext extracts user role from Gin context
func GetUserRoleFromContext(c *gin.Context) (models.UserRole, error) {
	userRole, exists := c.Get("user_role")
	if !exists {
		return "", fmt.Errorf("user role not found in context")
	}

	role, ok := userRole.(models.UserRole)
	if !ok {
		return "", fmt.Errorf("invalid user role type in context")
	}

	return role, nil
}
