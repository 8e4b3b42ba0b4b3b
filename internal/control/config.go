package control

import (
	"fmt"

	"github.com/vietddude/netfailover/internal/core/config"
	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/failover"
	redisclient "github.com/vietddude/netfailover/internal/infra/redis"
	"github.com/vietddude/netfailover/internal/infra/storage/postgres"
	"github.com/vietddude/netfailover/internal/netif"
)

// Config holds the application configuration.
type Config struct {
	Port      int // 0 disables the health server
	Priority  domain.PriorityConfig
	Resolver  netif.Resolver
	Monitor   netif.PollerConfig
	Transport failover.TransportConfig
	Redis     redisclient.Config
	Database  postgres.Config

	// Lister defaults to the host's interfaces.
	Lister netif.Lister
	// Journal receives attempts in addition to the configured backends.
	Journal failover.Journal
}

// FromAppConfig converts the file configuration.
func FromAppConfig(cfg *config.AppConfig) (Config, error) {
	priority, err := cfg.PriorityConfig()
	if err != nil {
		return Config{}, fmt.Errorf("invalid interfaces: %w", err)
	}
	resolver, err := cfg.Resolver()
	if err != nil {
		return Config{}, fmt.Errorf("invalid priority: %w", err)
	}
	return Config{
		Port:      cfg.Server.Port,
		Priority:  priority,
		Resolver:  resolver,
		Monitor:   cfg.Monitor,
		Transport: cfg.Transport,
		Redis:     cfg.Redis,
		Database:  cfg.Database,
	}, nil
}
