package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the service configuration, read from the environment.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:"0.0.0.0:8080"`

	// local anvil/hardhat node
	RPCURL       string `env:"ARENA_RPC_URL" envDefault:"http://127.0.0.1:8545"`
	ChainID      int64  `env:"ARENA_CHAIN_ID" envDefault:"31337"`
	ArenaAddress string `env:"ARENA_ADDRESS"`
	StartBlock   uint64 `env:"ARENA_START_BLOCK" envDefault:"0"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	LogWindow    uint64        `env:"LOG_WINDOW" envDefault:"2000"` // DefaultLogWindow

	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Load reads an optional .env file and then parses the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables")
	} else {
		log.Println("✅ Loaded environment variables from .env")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.LogWindow == 0 {
		return fmt.Errorf("LOG_WINDOW must be at least 1")
	}
	return nil
}
