package client

import (
	"fmt"

	"github.com/TheMichaelB/nextsync/internal/config"
	"github.com/TheMichaelB/nextsync/internal/creds"
	"github.com/TheMichaelB/nextsync/internal/events"
	"github.com/TheMichaelB/nextsync/internal/notify"
	"github.com/TheMichaelB/nextsync/internal/services/sync"
	"github.com/TheMichaelB/nextsync/internal/state"
	"github.com/TheMichaelB/nextsync/internal/storage"
	"github.com/TheMichaelB/nextsync/internal/transport"
)

// Client wires the engine together and exposes the high-level API consumed
// by the CLI. All collaborators are constructed here and passed down
// explicitly.
type Client struct {
	Sync *sync.Orchestrator

	config    *config.Config
	logger    *events.Logger
	transport transport.Client
	store     state.Store
}

// New creates a client from configuration. Credentials from the configured
// credentials file override inline config values.
func New(cfg *config.Config, logger *events.Logger) (*Client, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	remote, err := transport.NewWebDAVClient(&cfg.Remote, logger)
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	if cfg.Remote.CredentialsFile != "" {
		if c, err := creds.LoadFromFile(cfg.Remote.CredentialsFile); err == nil {
			remote.SetCredentials(c.Username, c.Password)
		} else {
			logger.WithError(err).Warn("Failed to load credentials file")
		}
	}

	store, err := state.NewSQLiteStore(cfg.Storage.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	local := storage.NewLocalStore(logger)
	notifier := notify.NewLogNotifier(logger)

	orchestrator := sync.NewOrchestrator(cfg.Sync, store, remote, local, notifier, nil, logger)

	return &Client{
		Sync:      orchestrator,
		config:    cfg,
		logger:    logger,
		transport: remote,
		store:     store,
	}, nil
}

// SetCredentials replaces the transport credentials for this process.
func (c *Client) SetCredentials(username, password string) {
	if dav, ok := c.transport.(*transport.WebDAVClient); ok {
		dav.SetCredentials(username, password)
	}
}

// Config returns the active configuration.
func (c *Client) Config() *config.Config {
	return c.config
}

// Close releases the store and transport.
func (c *Client) Close() error {
	if err := c.store.Close(); err != nil {
		return err
	}
	return c.transport.Close()
}
