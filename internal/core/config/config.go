package config

import (
	"fmt"
	"strings"

	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/failover"
	redisclient "github.com/vietddude/netfailover/internal/infra/redis"
	"github.com/vietddude/netfailover/internal/infra/storage/postgres"
	"github.com/vietddude/netfailover/internal/netif"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig             `yaml:"server"`
	Logging    LoggingConfig            `yaml:"logging"`
	Interfaces []InterfaceConfig        `yaml:"interfaces"`
	Priority   []string                 `yaml:"priority"`
	Monitor    netif.PollerConfig       `yaml:"monitor"`
	Transport  failover.TransportConfig `yaml:"transport"`
	Redis      redisclient.Config       `yaml:"redis"`
	Database   postgres.Config          `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// InterfaceConfig declares one interface class, in priority order.
type InterfaceConfig struct {
	Name         string   `yaml:"name"`
	Transport    string   `yaml:"transport"`
	NamePrefixes []string `yaml:"name_prefixes"`
	RequireUp    bool     `yaml:"require_up"`
}

// PriorityConfig converts the interfaces section into a priority configuration.
func (c *AppConfig) PriorityConfig() (domain.PriorityConfig, error) {
	b := domain.NewPriorityBuilder()
	for i, ic := range c.Interfaces {
		transport, err := domain.ParseTransport(ic.Transport)
		if err != nil {
			return domain.PriorityConfig{}, fmt.Errorf("interfaces[%d]: %w", i, err)
		}
		b.Add(domain.InterfaceClass{
			Name:      strings.TrimSpace(ic.Name),
			Transport: transport,
			Match: domain.MatchCriteria{
				NamePrefixes: ic.NamePrefixes,
				RequireUp:    ic.RequireUp,
			},
		})
	}
	return b.Build()
}

// Resolver builds the optional priority resolver chain. It is nil when no
// priority rules are configured.
func (c *AppConfig) Resolver() (netif.Resolver, error) {
	return netif.ParseResolver(c.Priority)
}
