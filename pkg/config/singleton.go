package config

import "sync/atomic"

// current is the process-wide configuration shared by the CLI commands.
var current atomic.Pointer[Config]

// GetConfig returns the process-wide configuration, or nil before the first
// SetConfig or Load.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig replaces the process-wide configuration. A nil cfg clears it.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// Load returns the process-wide configuration, loading it from path with
// environment overrides on first use. An empty path uses defaults plus
// environment. A failed load leaves nothing installed, so the next call
// retries.
func Load(path string) (*Config, error) {
	if cfg := current.Load(); cfg != nil {
		return cfg, nil
	}
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	if !current.CompareAndSwap(nil, cfg) {
		return current.Load(), nil
	}
	return cfg, nil
}
