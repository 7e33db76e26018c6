package casdoor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

// AuthCasdoor issues sessions through Casdoor's OAuth endpoints and manages
// accounts through the admin API.
type AuthCasdoor struct {
	client *casdoorsdk.Client
	oauth  *oauth2.Config
	config CasdoorConfig
}

func NewAuthCasdoor(config CasdoorConfig) repositories.AuthProvider {
	return &AuthCasdoor{
		client: NewClient(config),
		oauth:  NewOAuthConfig(config),
		config: config,
	}
}

// NewOAuthConfig describes the Casdoor application as an OAuth2 client
func NewOAuthConfig(config CasdoorConfig) *oauth2.Config {
	endpoint := strings.TrimRight(config.Endpoint, "/")
	return &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoint + "/login/oauth/authorize",
			TokenURL:  endpoint + "/api/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: config.RedirectURL,
		Scopes:      []string{"read"},
	}
}

func toAuthToken(token *oauth2.Token) *models.AuthToken {
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &models.AuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    tokenType,
		ExpiresAt:    token.Expiry,
	}
}

// tokenError separates rejected credentials from transport failures
func tokenError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%s: %w", op, repositories.ErrInvalidCredentials)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (a *AuthCasdoor) SignIn(ctx context.Context, email, password string) (*models.AuthToken, error) {
	token, err := a.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return nil, tokenError("password grant failed", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("password grant failed: %w", repositories.ErrInvalidCredentials)
	}
	return toAuthToken(token), nil
}

func (a *AuthCasdoor) SignUp(ctx context.Context, input repositories.SignUpInput) (*models.User, error) {
	existing, err := a.client.GetUserByEmail(input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, repositories.ErrUserExists
	}

	displayName := strings.TrimSpace(input.Name)
	if displayName == "" {
		displayName = strings.Split(input.Email, "@")[0]
	}

	account := &casdoorsdk.User{
		Owner:       a.config.OrganizationName,
		Name:        uuid.NewString(),
		Id:          uuid.NewString(),
		CreatedTime: time.Now().UTC().Format(time.RFC3339),
		Type:        "normal-user",
		DisplayName: displayName,
		Email:       input.Email,
		Password:    input.Password,
		Properties:  map[string]string{"role": string(models.RoleStudent)},
	}

	ok, err := a.client.AddUser(account)
	if err != nil {
		return nil, fmt.Errorf("failed to create Casdoor user: %w", err)
	}
	if !ok {
		return nil, repositories.ErrUserExists
	}

	return ConvertUser(account), nil
}

// AuthCodeURL points the browser at Casdoor's authorize page, preselecting the provider
func (a *AuthCasdoor) AuthCodeURL(provider, state string) string {
	opts := []oauth2.AuthCodeOption{}
	if provider != "" {
		opts = append(opts, oauth2.SetAuthURLParam("provider", provider))
	}
	return a.oauth.AuthCodeURL(state, opts...)
}

func (a *AuthCasdoor) Exchange(ctx context.Context, code string) (*models.AuthToken, error) {
	token, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, tokenError("code exchange failed", err)
	}
	return toAuthToken(token), nil
}

func (a *AuthCasdoor) Refresh(ctx context.Context, refreshToken string) (*models.AuthToken, error) {
	token, err := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, tokenError("token refresh failed", err)
	}
	return toAuthToken(token), nil
}

// SetPassword changes the password. An empty oldPassword is only used by the reset flow.
func (a *AuthCasdoor) SetPassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	ok, err := a.client.SetPassword(a.config.OrganizationName, user.Name, oldPassword, newPassword)
	if err != nil {
		if oldPassword != "" && strings.Contains(strings.ToLower(err.Error()), "password") {
			return fmt.Errorf("set password rejected: %w", repositories.ErrInvalidCredentials)
		}
		return fmt.Errorf("failed to set password: %w", err)
	}
	if !ok {
		return fmt.Errorf("set password rejected: %w", repositories.ErrInvalidCredentials)
	}
	return nil
}
