// Package daemon holds the quartermaster configuration and service wiring.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level TOML configuration.
type Config struct {
	API  APIConfig  `toml:"api"`
	RCON RCONConfig `toml:"rcon"`
	Shop ShopConfig `toml:"shop"`
}

// APIConfig configures the HTTP front-end.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"` // expose /metrics
}

// Addr returns the listen address.
func (c APIConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// RCONConfig configures the remote command session.
type RCONConfig struct {
	Enabled        bool   `toml:"enabled"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Password       string `toml:"password"`
	ReconnectDelay string `toml:"reconnect_delay"` // duration string, e.g. "3s"
}

// Addr returns the game server's rcon address.
func (c RCONConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// ShopConfig configures the ledger and grant amounts.
type ShopConfig struct {
	DBPath         string `toml:"db_path"`
	CatalogPath    string `toml:"catalog_path"` // optional TOML catalog override
	DailyBonus     int64  `toml:"daily_bonus"`
	DailyCooldown  string `toml:"daily_cooldown"`   // duration string, e.g. "24h"
	ItemSpawnDelay string `toml:"item_spawn_delay"` // pause between pack item sends
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8787,
			Metrics: true,
		},
		RCON: RCONConfig{
			Enabled:        false,
			Host:           "127.0.0.1",
			Port:           27015,
			ReconnectDelay: "3s",
		},
		Shop: ShopConfig{
			DBPath:         "shop.db",
			DailyBonus:     500,
			DailyCooldown:  "24h",
			ItemSpawnDelay: "100ms",
		},
	}
}

// ConfigPath returns the config file location: $QM_CONFIG if set, otherwise
// ~/.quartermaster/config.toml.
func ConfigPath() string {
	if env := os.Getenv("QM_CONFIG"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".quartermaster", "config.toml")
}

// LoadConfig reads path over the defaults. A missing file yields defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseDuration parses a config duration string, falling back when empty
// or malformed.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
