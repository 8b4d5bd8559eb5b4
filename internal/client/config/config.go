// Package config handles configuration for the CLI client.
package config

import "time"

// Config holds runtime settings for the srpvault CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP endpoint.
//   - RequestTimeout: per-request timeout for API calls.
//   - StateFile: path of the local token cache (0600). Empty means
//     $HOME/.srpvault/state.json.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
	StateFile          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8443"
	c.RequestTimeout = 30 * time.Second
	c.StateFile = ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
