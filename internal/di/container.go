// Package di provides dependency injection configuration for the Layar server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/layarapp/layar-server/internal/auth"
	"github.com/layarapp/layar-server/internal/config"
	"github.com/layarapp/layar-server/internal/di/providers"
	"github.com/layarapp/layar-server/internal/identity"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/service"
	"github.com/layarapp/layar-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideDocuments)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchSyncer)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideIdentityProvider)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideCatalogService)

	// Workers
	do.Provide(injector, providers.ProvideRegistry)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services. Invocation order is dependency order,
// so a failing provider reports before anything starts serving.
func Bootstrap(injector *do.RootScope) error {
	steps := []func() error{
		invoke[*config.Config](injector),
		invoke[*logger.Logger](injector),
		invoke[providers.AuthKey](injector),
		invoke[*providers.SSEManagerHandle](injector),
		invoke[*providers.StoreHandle](injector),
		invoke[*providers.DocumentsHandle](injector),
		invoke[*providers.SearchIndexHandle](injector),
		invoke[*providers.SearchSyncerHandle](injector),
		invoke[*auth.TokenService](injector),
		invoke[*identity.Provider](injector),
		invoke[*validation.Validator](injector),
		invoke[*service.AuthService](injector),
		invoke[*service.CatalogService](injector),
		invoke[*providers.RegistryHandle](injector),
		invoke[*providers.HTTPServerHandle](injector),
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func invoke[T any](injector do.Injector) func() error {
	return func() error {
		_, err := do.Invoke[T](injector)
		return err
	}
}
