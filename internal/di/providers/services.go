package providers

import (
	"github.com/samber/do/v2"

	"github.com/layarapp/layar-server/internal/identity"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/service"
	"github.com/layarapp/layar-server/internal/validation"
)

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideAuthService provides the sign-in and registration flows.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	docsHandle := do.MustInvoke[*DocumentsHandle](i)
	provider := do.MustInvoke[*identity.Provider](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(docsHandle.Store, provider, v, log.Logger), nil
}

// ProvideCatalogService provides the admin catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	docsHandle := do.MustInvoke[*DocumentsHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(docsHandle.Store, v, log.Logger), nil
}
