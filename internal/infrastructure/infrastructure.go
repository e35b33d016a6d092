// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, messaging) that
// domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/missive/internal/config"
	"github.com/JaimeStill/missive/pkg/broker"
	"github.com/JaimeStill/missive/pkg/database"
	"github.com/JaimeStill/missive/pkg/lifecycle"
	"github.com/JaimeStill/missive/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, blob storage and the message broker.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	// Broker is nil when NATS is disabled.
	Broker broker.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	var b broker.System
	if cfg.NATS.Enabled {
		b = broker.New(&cfg.NATS, logger)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Broker:    b,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database, storage and broker hooks are registered for startup and shutdown
// coordination.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if i.Broker != nil {
		if err := i.Broker.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("broker start failed: %w", err)
		}
	}
	return nil
}
