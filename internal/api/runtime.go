package api

import (
	"github.com/JaimeStill/missive/internal/config"
	"github.com/JaimeStill/missive/internal/infrastructure"
	"github.com/JaimeStill/missive/pkg/auth"
	"github.com/JaimeStill/missive/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination  pagination.Config
	Auth        *auth.Config
	Letters     *config.LettersConfig
	MaxBodySize int64
	// PublicBase is the absolute prefix of public letter links.
	PublicBase string
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Broker:    infra.Broker,
		},
		Pagination:  cfg.API.Pagination,
		Auth:        &cfg.Auth,
		Letters:     &cfg.Letters,
		MaxBodySize: cfg.API.MaxBodySizeBytes(),
		PublicBase:  publicBase(cfg),
	}
}
