package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/layarapp/layar-server/internal/domain"
	domainerrors "github.com/layarapp/layar-server/internal/errors"
	"github.com/layarapp/layar-server/internal/guard"
	"github.com/layarapp/layar-server/internal/identity"
	"github.com/layarapp/layar-server/internal/remote"
	"github.com/layarapp/layar-server/internal/validation"
)

// Authenticator is the per-client auth instance the sign-in flows act on.
// Adopt signs in an account that was authenticated server-side.
type Authenticator interface {
	remote.Auth
	Adopt(acct *remote.Account)
}

// FederatedMode says which page started a federated flow.
type FederatedMode string

// Federated modes.
const (
	FederatedLogin    FederatedMode = "login"
	FederatedRegister FederatedMode = "register"
)

// LoginRequest signs in with a username or an email.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"notblank"`
	Password   string `json:"password" validate:"required"`
}

// RegisterRequest creates a password account with a profile.
type RegisterRequest struct {
	Username        string `json:"username" validate:"notblank,max=32"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

// AuthResult is a completed sign-in and where the client should land.
type AuthResult struct {
	Account *remote.Account `json:"account"`
	Landing string          `json:"landing"`
}

// AuthService runs the sign-in, registration and sign-out flows.
type AuthService struct {
	docs      remote.Documents
	provider  *identity.Provider
	validator *validation.Validator
	logger    *slog.Logger
	suffix    func() int
}

// NewAuthService creates the auth flows.
func NewAuthService(docs remote.Documents, provider *identity.Provider, validator *validation.Validator, logger *slog.Logger) *AuthService {
	return &AuthService{
		docs:      docs,
		provider:  provider,
		validator: validator,
		logger:    logger,
		suffix:    func() int { return rand.IntN(1000) }, //nolint:gosec // username decoration
	}
}

// Login resolves the identifier to an email, signs auth in and picks the
// landing page from the profile role.
func (s *AuthService) Login(ctx context.Context, auth Authenticator, req LoginRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email, err := s.resolveEmail(ctx, domain.NormalizeIdentifier(req.Identifier))
	if err != nil {
		return nil, err
	}

	acct, err := auth.SignIn(ctx, email, req.Password)
	if err != nil {
		s.logger.Info("sign-in failed", "error", err)
		return nil, err
	}

	landing := guard.HomePath
	doc, err := s.docs.Get(ctx, remote.CollectionUsers, acct.UID)
	switch {
	case err != nil:
		s.logger.Error("profile fetch after sign-in failed", "uid", acct.UID, "error", err)
	case doc.Exists && domain.PrincipalFromProfile(acct.UID, doc.Fields).IsAdmin():
		landing = guard.AdminPath
	}

	return &AuthResult{Account: acct, Landing: landing}, nil
}

func (s *AuthService) resolveEmail(ctx context.Context, identifier string) (string, error) {
	if domain.IsEmail(identifier) {
		return identifier, nil
	}

	matches, err := s.docs.Query(ctx, remote.CollectionUsers, domain.FieldUsername, identifier)
	if err != nil {
		return "", fmt.Errorf("lookup username: %w", err)
	}
	if len(matches) == 0 {
		return "", domainerrors.ErrInvalidCredentials
	}

	email, _ := matches[0].Fields[domain.FieldEmail].(string)
	if email == "" {
		return "", domainerrors.ErrInvalidCredentials
	}
	return email, nil
}

// Register creates the account and its profile, then signs auth in. The
// profile is written before the client is signed in, so the session never
// sees the new account without one.
func (s *AuthService) Register(ctx context.Context, auth Authenticator, req RegisterRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	username := domain.NormalizeIdentifier(req.Username)
	taken, err := s.docs.Query(ctx, remote.CollectionUsers, domain.FieldUsername, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if len(taken) > 0 {
		return nil, domainerrors.ErrUsernameTaken
	}

	acct, err := s.provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	if err := s.docs.Set(ctx, remote.CollectionUsers, acct.UID, map[string]any{
		domain.FieldUsername:  username,
		domain.FieldEmail:     acct.Email,
		domain.FieldRole:      string(domain.RoleUser),
		domain.FieldCreatedAt: remote.ServerTimestamp,
	}); err != nil {
		s.logger.Error("profile write after sign-up failed", "uid", acct.UID, "error", err)
		return nil, fmt.Errorf("create profile: %w", err)
	}

	auth.Adopt(acct)
	s.logger.Info("user registered", "uid", acct.UID, "username", username)

	return &AuthResult{Account: acct, Landing: guard.HomePath}, nil
}

// FederatedURL returns the identity provider URL for a federated flow.
func (s *AuthService) FederatedURL(state string) (string, error) {
	return s.provider.FederatedURL(state)
}

// FederationEnabled reports whether federated sign-in is configured.
func (s *AuthService) FederationEnabled() bool {
	return s.provider.FederationEnabled()
}

// CompleteFederated finishes a federated flow. A first sign-in gets a
// profile named after the email's local part; registrations add a random
// numeric suffix to it.
func (s *AuthService) CompleteFederated(ctx context.Context, auth Authenticator, code string, mode FederatedMode) (*AuthResult, error) {
	acct, err := s.provider.SignInFederated(ctx, code)
	if err != nil {
		s.logger.Info("federated sign-in failed", "error", err)
		return nil, err
	}

	doc, err := s.docs.Get(ctx, remote.CollectionUsers, acct.UID)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	if !doc.Exists {
		username := domain.NormalizeIdentifier(domain.EmailLocalPart(acct.Email))
		if mode == FederatedRegister {
			username += strconv.Itoa(s.suffix())
		}
		profile := map[string]any{
			domain.FieldUsername:  username,
			domain.FieldEmail:     acct.Email,
			domain.FieldRole:      string(domain.RoleUser),
			domain.FieldCreatedAt: remote.ServerTimestamp,
		}
		if acct.PhotoURL != "" {
			profile[domain.FieldPhotoURL] = acct.PhotoURL
		}
		if err := s.docs.Set(ctx, remote.CollectionUsers, acct.UID, profile); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		s.logger.Info("federated profile created", "uid", acct.UID, "username", username)
	}

	auth.Adopt(acct)
	return &AuthResult{Account: acct, Landing: guard.HomePath}, nil
}

// Logout signs auth out. The session synchronizer clears the state.
func (s *AuthService) Logout(ctx context.Context, auth Authenticator) error {
	if err := auth.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// GrantRole sets the role on the profile of the account registered under
// email.
func (s *AuthService) GrantRole(ctx context.Context, email string, role domain.Role) (string, error) {
	if role != domain.RoleAdmin && role != domain.RoleUser {
		return "", domainerrors.Validationf("unknown role %q", role)
	}

	acct, err := s.provider.AccountByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	err = s.docs.Update(ctx, remote.CollectionUsers, acct.UID, remote.SetField(domain.FieldRole, string(role)))
	if remote.IsNotFound(err) {
		return "", domainerrors.NotFoundf("account %s has no profile", email)
	}
	if err != nil {
		return "", fmt.Errorf("update role: %w", err)
	}
	return acct.UID, nil
}
