// Package config loads and saves the server's TOML configuration and
// resolves the on-disk data directory.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

const (
	DefaultPort      = 7333
	DefaultBind      = "127.0.0.1"
	DefaultRelayPort = 7334
	DefaultMaxPerHr  = 60
)

// ServerConfig is the `[server]` section of config.toml.
type ServerConfig struct {
	URL      string `toml:"url"`
	APIKey   string `toml:"api_key"`
	Port     uint16 `toml:"port"`
	Bind     string `toml:"bind"`
	RelayURL string `toml:"relay_url,omitempty"`
}

// ApnsConfig is the optional `[apns]` section.
type ApnsConfig struct {
	KeyPath  string `toml:"key_path"`
	KeyID    string `toml:"key_id"`
	TeamID   string `toml:"team_id"`
	BundleID string `toml:"bundle_id"`
	Sandbox  bool   `toml:"sandbox"`
}

// RelayConfig is the optional `[relay]` section, used by the standalone
// relay process.
type RelayConfig struct {
	Port                     uint16 `toml:"port"`
	Bind                     string `toml:"bind"`
	ApnsKeyPath              string `toml:"apns_key_path"`
	ApnsKeyID                string `toml:"apns_key_id"`
	ApnsTeamID               string `toml:"apns_team_id"`
	ApnsBundleID             string `toml:"apns_bundle_id"`
	ApnsSandbox              bool   `toml:"apns_sandbox"`
	MaxRequestsPerDevicePerH uint32 `toml:"max_requests_per_device_per_hour"`
}

// ToApnsConfig projects the relay's embedded APNs credentials into a plain
// ApnsConfig, the shape the APNs dispatcher constructor expects.
func (r RelayConfig) ToApnsConfig() ApnsConfig {
	return ApnsConfig{
		KeyPath:  r.ApnsKeyPath,
		KeyID:    r.ApnsKeyID,
		TeamID:   r.ApnsTeamID,
		BundleID: r.ApnsBundleID,
		Sandbox:  r.ApnsSandbox,
	}
}

// Config is the root shape of config.toml.
type Config struct {
	Server ServerConfig `toml:"server"`
	Apns   *ApnsConfig  `toml:"apns,omitempty"`
	Relay  *RelayConfig `toml:"relay,omitempty"`
}

// DataDir resolves the data directory: OMCLI_DATA_DIR if set, else ~/.omcli.
func DataDir() string {
	if dir := os.Getenv("OMCLI_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Cannot determine home directory; fall back to the current
		// directory rather than panicking, since serve/relay should
		// still be runnable with an explicit OMCLI_DATA_DIR.
		home = "."
	}
	return filepath.Join(home, ".omcli")
}

func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

func DevicesPath() string {
	return filepath.Join(DataDir(), "devices.json")
}

// Load reads and parses config.toml. Returns an error if the file is
// missing or malformed.
func Load() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config not found at %s; run 'omcli serve' first", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to config.toml, creating the data directory if
// needed. This is a whole-file rewrite, matching the registry's own
// persistence model — the config file is small and infrequently written.
func (c *Config) Save() error {
	dir := DataDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(), buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadOrCreate loads the existing config, refreshing its bind/port/url to
// match the current `serve` invocation, or creates a fresh config with a
// generated API key on first run.
func LoadOrCreate(port uint16, bind string) (*Config, error) {
	path := ConfigPath()
	if _, err := os.Stat(path); err == nil {
		cfg, loadErr := Load()
		if loadErr == nil {
			cfg.Server.URL = fmt.Sprintf("http://%s:%d", bind, port)
			cfg.Server.Port = port
			cfg.Server.Bind = bind
			_ = cfg.Save()
			return cfg, nil
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			URL:    fmt.Sprintf("http://%s:%d", bind, port),
			APIKey: uuid.NewString(),
			Port:   port,
			Bind:   bind,
		},
	}
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("save initial config: %w", err)
	}
	return cfg, nil
}
