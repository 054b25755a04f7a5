package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/ksmcod/tasky-api/internal/domain"
	"github.com/ksmcod/tasky-api/internal/repository"
	"github.com/ksmcod/tasky-api/internal/service/account"
	"github.com/ksmcod/tasky-api/pkg/apperr"
	"github.com/ksmcod/tasky-api/pkg/config"
	"github.com/ksmcod/tasky-api/pkg/crypto"
	jwtpkg "github.com/ksmcod/tasky-api/pkg/jwt"
)

const msgInvalidCredentials = "Invalid credentials"

// decoyHash is compared against when no stored hash exists so that unknown
// and federated accounts cost the same bcrypt work as a wrong password.
var decoyHash = sync.OnceValue(func() []byte {
	hash, err := crypto.HashPassword("tasky-decoy-password")
	if err != nil {
		panic(err)
	}
	return hash
})

// Service handles authentication workflows.
type Service struct {
	users    repository.UserRepository
	accounts account.Service
	github   *GitHub
	logger   *slog.Logger
	cfg      config.APIConfig
	compare  func(hash []byte, plain string) error
}

// New constructs a Service. github may be nil when GitHub login is disabled.
func New(users repository.UserRepository, accounts account.Service, github *GitHub, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{
		users:    users,
		accounts: accounts,
		github:   github,
		logger:   logger,
		cfg:      cfg,
		compare:  crypto.ComparePassword,
	}
}

// LoginInput is the payload of a local login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks local credentials and returns the user with a fresh session
// token. Unknown emails, federated accounts and wrong passwords all yield the
// same validation error.
func (s Service) Login(ctx context.Context, in LoginInput) (*domain.User, string, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, "", apperr.Validation(msgInvalidCredentials)
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = s.compare(decoyHash(), in.Password)
			return nil, "", apperr.Validation(msgInvalidCredentials)
		}
		return nil, "", apperr.Internal("lookup user by email", err)
	}
	if !user.HasPassword() {
		_ = s.compare(decoyHash(), in.Password)
		return nil, "", apperr.Validation(msgInvalidCredentials)
	}
	if err := s.compare(user.PasswordHash, in.Password); err != nil {
		return nil, "", apperr.Validation(msgInvalidCredentials)
	}
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// IssueToken signs a session token for userID.
func (s Service) IssueToken(userID string) (string, error) {
	token, err := jwtpkg.GenerateToken(userID, s.cfg.JWTSecret, s.cfg.SessionTTL)
	if err != nil {
		return "", apperr.Internal("sign session token", err)
	}
	return token, nil
}

// VerifyToken returns the user id carried by a session token.
func (s Service) VerifyToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", apperr.Unauthorized("Unauthorized")
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnauthorized, "Unauthorized", err)
	}
	return claims.UserID, nil
}

// GitHubEnabled reports whether GitHub login is configured.
func (s Service) GitHubEnabled() bool {
	return s.github != nil
}

// GitHubAuthURL returns the GitHub consent URL bound to state.
func (s Service) GitHubAuthURL(state string) (string, error) {
	if s.github == nil {
		return "", apperr.NotFound("GitHub login is not configured")
	}
	return s.github.AuthCodeURL(state), nil
}

// GitHubLogin completes the OAuth flow for code and signs the user in,
// creating a federated account on first use.
func (s Service) GitHubLogin(ctx context.Context, code string) (*domain.User, string, error) {
	if s.github == nil {
		return nil, "", apperr.NotFound("GitHub login is not configured")
	}
	if strings.TrimSpace(code) == "" {
		return nil, "", apperr.Validation("Missing authorization code")
	}
	profile, err := s.github.Profile(ctx, code)
	if err != nil {
		return nil, "", err
	}
	user, err := s.accounts.FindOrCreateFederated(ctx, profile)
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID, "provider", ProviderGitHub)
	return user, token, nil
}
