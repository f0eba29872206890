package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/layarapp/layar-server/internal/auth"
	"github.com/layarapp/layar-server/internal/config"
	"github.com/layarapp/layar-server/internal/identity"
	"github.com/layarapp/layar-server/internal/logger"
)

// AuthKey wraps the token key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the token key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	log.Info("Client token key loaded", "client_token_duration", cfg.Auth.ClientTokenDuration)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO client token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.ClientTokenDuration)
}

// ProvideIdentityProvider provides the account provider, with federated
// sign-in when an OIDC issuer is configured.
func ProvideIdentityProvider(i do.Injector) (*identity.Provider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	var federator identity.Federator
	if cfg.OIDC.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		f, err := identity.NewOIDCFederator(ctx, cfg.OIDC)
		if err != nil {
			return nil, err
		}
		federator = f
		log.Info("Federated sign-in enabled", "issuer", cfg.OIDC.IssuerURL)
	}

	return identity.NewProvider(storeHandle.Store, federator, log.Component("identity")), nil
}
