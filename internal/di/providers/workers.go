package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/layarapp/layar-server/internal/auth"
	"github.com/layarapp/layar-server/internal/config"
	"github.com/layarapp/layar-server/internal/identity"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/replicas"
)

// RegistryHandle wraps the replica registry and its reaper.
type RegistryHandle struct {
	*replicas.Registry
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *RegistryHandle) Shutdown() error {
	h.cancel()
	h.Close()
	return nil
}

// ProvideRegistry provides the per-client replica registry and starts the
// job that drops idle replicas.
func ProvideRegistry(i do.Injector) (*RegistryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	provider := do.MustInvoke[*identity.Provider](i)
	docsHandle := do.MustInvoke[*DocumentsHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	registry := replicas.New(provider, docsHandle.Store, tokens, sseHandle.Manager,
		cfg.Replica.IdleTimeout, log.Component("replicas"))

	ctx, cancel := context.WithCancel(context.Background())
	go registry.Run(ctx, cfg.Replica.ReapInterval)

	log.Info("Replica reaper started",
		"idle_timeout", cfg.Replica.IdleTimeout,
		"interval", cfg.Replica.ReapInterval,
	)

	return &RegistryHandle{Registry: registry, cancel: cancel}, nil
}
