package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataDirHonorsEnvOverride(t *testing.T) {
	t.Setenv("OMCLI_DATA_DIR", "/tmp/omcli-test-dir")
	assert.Equal(t, "/tmp/omcli-test-dir", DataDir())
}

func TestLoadMissingFileReturnsActionableError(t *testing.T) {
	t.Setenv("OMCLI_DATA_DIR", t.TempDir())
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "omcli serve")
}

func TestLoadOrCreateGeneratesAPIKeyOnFirstRun(t *testing.T) {
	t.Setenv("OMCLI_DATA_DIR", t.TempDir())

	cfg, err := LoadOrCreate(9999, "0.0.0.0")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Server.APIKey)
	assert.Equal(t, uint16(9999), cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Bind)
	assert.Equal(t, "http://0.0.0.0:9999", cfg.Server.URL)

	reloaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.APIKey, reloaded.Server.APIKey)
}

func TestLoadOrCreateRefreshesBindPortOnSubsequentRuns(t *testing.T) {
	t.Setenv("OMCLI_DATA_DIR", t.TempDir())

	first, err := LoadOrCreate(7333, "127.0.0.1")
	require.NoError(t, err)

	second, err := LoadOrCreate(8000, "0.0.0.0")
	require.NoError(t, err)

	assert.Equal(t, first.Server.APIKey, second.Server.APIKey, "api key must survive a rebind")
	assert.Equal(t, uint16(8000), second.Server.Port)
	assert.Equal(t, "0.0.0.0", second.Server.Bind)
}

func TestSaveAndLoadRoundTripsApnsAndRelaySections(t *testing.T) {
	t.Setenv("OMCLI_DATA_DIR", t.TempDir())

	cfg := &Config{
		Server: ServerConfig{URL: "http://127.0.0.1:7333", APIKey: "key-1", Port: 7333, Bind: "127.0.0.1"},
		Apns:   &ApnsConfig{KeyPath: "/keys/AuthKey.p8", KeyID: "KEYID", TeamID: "TEAMID", BundleID: "com.example.app"},
		Relay:  &RelayConfig{Port: 7334, Bind: "0.0.0.0", MaxRequestsPerDevicePerH: 60},
	}
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	require.NotNil(t, loaded.Apns)
	require.NotNil(t, loaded.Relay)
	assert.Equal(t, "com.example.app", loaded.Apns.BundleID)
	assert.Equal(t, uint32(60), loaded.Relay.MaxRequestsPerDevicePerH)
}

func TestToApnsConfigProjectsRelayCredentials(t *testing.T) {
	r := RelayConfig{
		ApnsKeyPath:  "/keys/AuthKey.p8",
		ApnsKeyID:    "KEYID",
		ApnsTeamID:   "TEAMID",
		ApnsBundleID: "com.example.app",
		ApnsSandbox:  true,
	}
	apnsCfg := r.ToApnsConfig()
	assert.Equal(t, "/keys/AuthKey.p8", apnsCfg.KeyPath)
	assert.True(t, apnsCfg.Sandbox)
}
