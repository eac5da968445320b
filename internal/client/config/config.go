// Package config handles configuration for the client component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the LinkDeck client.
//
// Fields:
//   - ServerEndpointAddr: base URL of the sync server.
//   - SyncPassword: shared secret presented to the server. Empty means the
//     deployment runs without authentication.
//   - DatabaseDSN: path/DSN of the local sqlite cache.
//   - DebounceInterval: quiet period after the last local edit before a
//     push is attempted.
//   - RequestTimeout: per-request timeout for server calls.
type Config struct {
	ServerEndpointAddr string
	SyncPassword       string
	DatabaseDSN        string
	DebounceInterval   time.Duration
	RequestTimeout     time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://localhost:8080"
	c.SyncPassword = ""
	c.DatabaseDSN = "linkdeck.db"
	c.DebounceInterval = 3 * time.Second
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
