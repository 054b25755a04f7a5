package account

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ksmcod/tasky-api/internal/domain"
	"github.com/ksmcod/tasky-api/internal/repository"
	"github.com/ksmcod/tasky-api/internal/validation"
	"github.com/ksmcod/tasky-api/pkg/apperr"
	"github.com/ksmcod/tasky-api/pkg/crypto"
)

const avatarBaseURL = "https://avatar.iran.liara.run/username"

// Service is the user directory.
type Service struct {
	users     repository.UserRepository
	logger    *slog.Logger
	validator *validation.Validator
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger) Service {
	return Service{users: users, logger: logger, validator: validation.New()}
}

// RegisterInput is the payload of a local registration.
type RegisterInput struct {
	FirstName string `json:"firstName" validate:"required" label:"First name"`
	LastName  string `json:"lastName" validate:"required" label:"Last name"`
	Email     string `json:"email" validate:"required,email" label:"Email"`
	Password  string `json:"password" validate:"required,min=8" label:"Password"`
}

// FederatedProfile is the identity returned by an external provider.
type FederatedProfile struct {
	Email       string
	DisplayName string
	PhotoURL    string
	Provider    string
	ProviderID  string
}

// Register creates a local account with a hashed password.
func (s Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflict("User already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal("lookup user by email", err)
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	name := in.FirstName + " " + in.LastName
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        in.Email,
		PasswordHash: hash,
		Image:        AvatarURL(name),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal("create user", err)
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// FindOrCreateFederated returns the account linked to the profile's provider
// identity, falling back to the passwordless account for its email and
// creating one on first sign-in. An email owned by a local account is
// rejected.
func (s Service) FindOrCreateFederated(ctx context.Context, p FederatedProfile) (*domain.User, error) {
	email := strings.TrimSpace(p.Email)
	if email == "" {
		return nil, apperr.Validation("Provider did not return an email")
	}

	// The provider identity outlives email changes on the provider side.
	linked, err := s.lookupFederated(ctx, p, email)
	if err != nil || linked != nil {
		return linked, err
	}

	name := strings.TrimSpace(p.DisplayName)
	if name == "" {
		name = email
	}
	image := p.PhotoURL
	if image == "" {
		image = AvatarURL(name)
	}
	user := &domain.User{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		Image:      image,
		Provider:   p.Provider,
		ProviderID: p.ProviderID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Internal("create federated user", err)
		}
		// Lost a race with a concurrent sign-in for the same identity.
		linked, err := s.lookupFederated(ctx, p, email)
		if err != nil {
			return nil, err
		}
		if linked == nil {
			return nil, apperr.Internal("reload federated user", repository.ErrNotFound)
		}
		return linked, nil
	}
	s.logger.Info("federated user created", "user_id", user.ID, "provider", p.Provider)
	return user, nil
}

// lookupFederated resolves an existing account by provider identity, then by
// email. It returns nil, nil when neither exists.
func (s Service) lookupFederated(ctx context.Context, p FederatedProfile, email string) (*domain.User, error) {
	if p.Provider != "" && p.ProviderID != "" {
		user, err := s.users.GetUserByProvider(ctx, p.Provider, p.ProviderID)
		switch {
		case err == nil:
			if user.Email != email {
				s.logger.Info("federated email changed", "user_id", user.ID, "provider", p.Provider)
			}
			return user, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, apperr.Internal("lookup user by provider", err)
		}
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return s.federatedMatch(user)
	case errors.Is(err, repository.ErrNotFound):
		return nil, nil
	}
	return nil, apperr.Internal("lookup user by email", err)
}

func (s Service) federatedMatch(user *domain.User) (*domain.User, error) {
	if user.HasPassword() {
		return nil, apperr.Conflict("Email already registered")
	}
	return user, nil
}

// FindByID returns the user with id.
func (s Service) FindByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "lookup user by id")
	}
	return user, nil
}

// FindByEmail returns the user with email.
func (s Service) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, notFoundOrInternal(err, "lookup user by email")
	}
	return user, nil
}

func notFoundOrInternal(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "User not found", err)
	}
	return apperr.Internal(op, err)
}

// AvatarURL builds the generated avatar link for a display name.
func AvatarURL(name string) string {
	return avatarBaseURL + "?" + url.Values{"username": {name}}.Encode()
}
