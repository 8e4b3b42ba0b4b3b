package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	redisclient "github.com/vietddude/netfailover/internal/infra/redis"
	"github.com/vietddude/netfailover/internal/netif"
)

// Load reads configuration from a YAML file. Variables from a .env file in
// the working directory are loaded first and never override the environment.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML configuration.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Monitor.Interval <= 0 {
		cfg.Monitor.Interval = netif.DefaultPollInterval
	}
	cfg.Transport = cfg.Transport.WithDefaults()
	if cfg.Redis.MaxEntries <= 0 {
		cfg.Redis.MaxEntries = redisclient.DefaultMaxEntries
	}
}

// Validate checks the parts of the configuration that would otherwise only
// fail at request time.
func (c *AppConfig) Validate() error {
	if _, err := c.PriorityConfig(); err != nil {
		return fmt.Errorf("invalid interfaces: %w", err)
	}
	if _, err := c.Resolver(); err != nil {
		return fmt.Errorf("invalid priority: %w", err)
	}
	return nil
}
