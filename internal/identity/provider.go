// Package identity is the authentication provider: password and federated
// accounts persisted in badger, and per-client auth instances that report
// sign-in state changes to the synchronizers.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/layarapp/layar-server/internal/auth"
	domainerrors "github.com/layarapp/layar-server/internal/errors"
	"github.com/layarapp/layar-server/internal/id"
	"github.com/layarapp/layar-server/internal/remote"
	"github.com/layarapp/layar-server/internal/store"
	"github.com/layarapp/layar-server/internal/validation"
)

// Account providers.
const (
	ProviderPassword  = "password"
	ProviderFederated = "oidc"
)

const minPasswordLength = 6

type account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Provider     string    `json:"provider"`
	Subject      string    `json:"subject,omitempty"`
	PhotoURL     string    `json:"photoURL,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastSignInAt time.Time `json:"lastSignInAt"`
}

func (a *account) toRemote() *remote.Account {
	return &remote.Account{UID: a.UID, Email: a.Email, PhotoURL: a.PhotoURL, Provider: a.Provider}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Provider owns the account records.
type Provider struct {
	accounts  *store.Entity[account]
	federator Federator
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewProvider creates a provider. federator may be nil, which disables
// federated sign-in.
func NewProvider(db *store.Store, federator Federator, logger *slog.Logger) *Provider {
	accounts := store.NewEntity[account](db, "account:").
		WithIndexTransform("email",
			func(a *account) []string { return []string{normalizeEmail(a.Email)} },
			normalizeEmail).
		WithIndex("subject", func(a *account) []string {
			if a.Subject == "" {
				return nil
			}
			return []string{a.Subject}
		})

	return &Provider{
		accounts:  accounts,
		federator: federator,
		validator: validation.New(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// FederationEnabled reports whether a federator is configured.
func (p *Provider) FederationEnabled() bool {
	return p.federator != nil
}

// FederatedURL returns the provider URL a browser starts federated sign-in at.
func (p *Provider) FederatedURL(state string) (string, error) {
	if p.federator == nil {
		return "", domainerrors.FederatedFailed(errors.New("federated sign-in is not configured"))
	}
	return p.federator.AuthCodeURL(state), nil
}

// SignUp creates a password account.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*remote.Account, error) {
	email = strings.TrimSpace(email)
	if err := p.validator.Var("email", email, "required,email"); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, domainerrors.ErrWeakPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	uid, err := id.UID()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to allocate account id")
	}

	now := p.now()
	acct := &account{
		UID:          uid,
		Email:        email,
		PasswordHash: hash,
		Provider:     ProviderPassword,
		CreatedAt:    now,
		LastSignInAt: now,
	}
	if err := p.accounts.Create(ctx, uid, acct); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.ErrEmailInUse
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	p.logger.Info("account created", "uid", uid, "provider", ProviderPassword)
	return acct.toRemote(), nil
}

// SignIn verifies a password. Every failure mode is INVALID_CREDENTIALS.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*remote.Account, error) {
	acct, err := p.accounts.GetByIndex(ctx, "email", email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if acct.PasswordHash == "" || !auth.VerifyPassword(acct.PasswordHash, password) {
		return nil, domainerrors.ErrInvalidCredentials
	}

	return p.touch(ctx, acct.UID, "")
}

// SignInFederated completes the code flow and upserts the matching account.
// A verified email that already has a password account is linked to it.
func (p *Provider) SignInFederated(ctx context.Context, code string) (*remote.Account, error) {
	if p.federator == nil {
		return nil, domainerrors.FederatedFailed(errors.New("federated sign-in is not configured"))
	}

	ident, err := p.federator.Exchange(ctx, code)
	if err != nil {
		return nil, domainerrors.FederatedFailed(err)
	}

	if existing, err := p.accounts.GetByIndex(ctx, "subject", ident.Subject); err == nil {
		return p.touch(ctx, existing.UID, ident.PhotoURL)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup federated account: %w", err)
	}

	if byEmail, err := p.accounts.GetByIndex(ctx, "email", ident.Email); err == nil {
		if !ident.EmailVerified {
			return nil, domainerrors.ErrEmailInUse
		}
		linked, err := p.accounts.Mutate(ctx, byEmail.UID, func(cur *account) (*account, error) {
			if cur == nil {
				return nil, store.ErrNotFound
			}
			cur.Subject = ident.Subject
			cur.PhotoURL = ident.PhotoURL
			cur.LastSignInAt = p.now()
			return cur, nil
		})
		if err != nil {
			return nil, fmt.Errorf("link federated account: %w", err)
		}
		p.logger.Info("federated identity linked", "uid", linked.UID)
		return linked.toRemote(), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	uid, err := id.UID()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to allocate account id")
	}
	now := p.now()
	acct := &account{
		UID:          uid,
		Email:        strings.TrimSpace(ident.Email),
		Provider:     ProviderFederated,
		Subject:      ident.Subject,
		PhotoURL:     ident.PhotoURL,
		CreatedAt:    now,
		LastSignInAt: now,
	}
	if err := p.accounts.Create(ctx, uid, acct); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.ErrEmailInUse
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	p.logger.Info("account created", "uid", uid, "provider", ProviderFederated)
	return acct.toRemote(), nil
}

// Account returns the account for uid.
func (p *Provider) Account(ctx context.Context, uid string) (*remote.Account, error) {
	acct, err := p.accounts.Get(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("account %s not found", uid)
	}
	if err != nil {
		return nil, err
	}
	return acct.toRemote(), nil
}

// AccountByEmail looks an account up by email, case-insensitively.
func (p *Provider) AccountByEmail(ctx context.Context, email string) (*remote.Account, error) {
	acct, err := p.accounts.GetByIndex(ctx, "email", email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("no account for %s", email)
	}
	if err != nil {
		return nil, err
	}
	return acct.toRemote(), nil
}

func (p *Provider) touch(ctx context.Context, uid, photoURL string) (*remote.Account, error) {
	acct, err := p.accounts.Mutate(ctx, uid, func(cur *account) (*account, error) {
		if cur == nil {
			return nil, store.ErrNotFound
		}
		cur.LastSignInAt = p.now()
		if photoURL != "" {
			cur.PhotoURL = photoURL
		}
		return cur, nil
	})
	if err != nil {
		return nil, fmt.Errorf("record sign-in: %w", err)
	}
	return acct.toRemote(), nil
}
