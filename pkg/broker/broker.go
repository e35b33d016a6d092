// Package broker provides a NATS connection with lifecycle coordination.
package broker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/JaimeStill/missive/pkg/lifecycle"
)

// ErrNotConnected is returned by Publish before the startup hook has connected.
var ErrNotConnected = errors.New("broker not connected")

// System publishes messages to NATS subjects.
type System interface {
	// Publish sends data on subject and flushes within ctx.
	Publish(ctx context.Context, subject string, data []byte) error
	// Ready reports whether the connection is currently established.
	Ready() bool
	// Start registers the connect and drain hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type broker struct {
	cfg    *Config
	logger *slog.Logger

	mu   sync.RWMutex
	conn *nats.Conn
}

// New creates a broker system. No connection is made until Start runs its
// startup hook.
func New(cfg *Config, logger *slog.Logger) System {
	return &broker{
		cfg:    cfg,
		logger: logger.With("system", "broker"),
	}
}

func (b *broker) Start(lc *lifecycle.Coordinator) error {
	b.logger.Info("starting broker connection", "url", b.cfg.URL)
	lc.Require(b)

	lc.OnStartup(func() {
		conn, err := nats.Connect(b.cfg.URL, b.options()...)
		if err != nil {
			b.logger.Error("broker connect failed", "error", err)
			return
		}

		b.mu.Lock()
		b.conn = conn
		b.mu.Unlock()

		b.logger.Info("broker connection established", "server", conn.ConnectedUrl())
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		b.mu.Lock()
		conn := b.conn
		b.conn = nil
		b.mu.Unlock()

		if conn == nil {
			return
		}

		b.logger.Info("draining broker connection")
		if err := conn.Drain(); err != nil {
			b.logger.Error("broker drain failed", "error", err)
			conn.Close()
		}
	})

	return nil
}

func (b *broker) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil && b.conn.IsConnected()
}

func (b *broker) Publish(ctx context.Context, subject string, data []byte) error {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	if err := conn.Publish(subject, data); err != nil {
		return err
	}
	return conn.FlushWithContext(ctx)
}

func (b *broker) options() []nats.Option {
	return []nats.Option{
		nats.Name(b.cfg.Name),
		nats.Timeout(b.cfg.ConnectTimeoutDuration()),
		nats.ReconnectWait(b.cfg.ReconnectWaitDuration()),
		nats.MaxReconnects(b.cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("broker disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			b.logger.Info("broker reconnected", "server", c.ConnectedUrl())
		}),
	}
}
