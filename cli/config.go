package cli

import (
	"fmt"
	"strconv"

	"github.com/P5ina/open-mobile-cli/server/config"
)

func ShowConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fmt.Printf("Server URL: %s\n", cfg.Server.URL)
	fmt.Printf("API Key:    %s\n", cfg.Server.APIKey)
	fmt.Printf("Port:       %d\n", cfg.Server.Port)
	fmt.Printf("Bind:       %s\n", cfg.Server.Bind)

	if cfg.Apns != nil {
		fmt.Println()
		fmt.Println("[APNs]")
		fmt.Printf("Key Path:   %s\n", cfg.Apns.KeyPath)
		fmt.Printf("Key ID:     %s\n", cfg.Apns.KeyID)
		fmt.Printf("Team ID:    %s\n", cfg.Apns.TeamID)
		fmt.Printf("Bundle ID:  %s\n", cfg.Apns.BundleID)
		fmt.Printf("Sandbox:    %v\n", cfg.Apns.Sandbox)
	}
	return nil
}

// SetConfig updates a single config.toml key from its flat dotted name.
func SetConfig(key, value string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch key {
	case "server", "url":
		cfg.Server.URL = value
	case "api_key", "token":
		cfg.Server.APIKey = value
	case "port":
		p, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid port number")
		}
		cfg.Server.Port = uint16(p)
	case "bind":
		cfg.Server.Bind = value
	case "apns.key_path":
		apnsMut(cfg).KeyPath = value
	case "apns.key_id":
		apnsMut(cfg).KeyID = value
	case "apns.team_id":
		apnsMut(cfg).TeamID = value
	case "apns.bundle_id":
		apnsMut(cfg).BundleID = value
	case "apns.sandbox":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean (use true/false)")
		}
		apnsMut(cfg).Sandbox = b
	default:
		return fmt.Errorf("unknown config key: %s\navailable: server, api_key, port, bind\n  APNs: apns.key_path, apns.key_id, apns.team_id, apns.bundle_id, apns.sandbox", key)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Config updated: %s = %s\n", key, value)
	return nil
}

func apnsMut(cfg *config.Config) *config.ApnsConfig {
	if cfg.Apns == nil {
		cfg.Apns = &config.ApnsConfig{}
	}
	return cfg.Apns
}
