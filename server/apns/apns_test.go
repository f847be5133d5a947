package apns

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/P5ina/open-mobile-cli/server/config"
)

func TestNewFailsWhenKeyFileIsMissing(t *testing.T) {
	_, err := New(config.ApnsConfig{KeyPath: "/nonexistent/AuthKey.p8"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load APNs key")
}

func TestNewFailsWhenKeyFileIsNotValidPEM(t *testing.T) {
	badKey := t.TempDir() + "/AuthKey.p8"
	require.NoError(t, writeFile(badKey, "not a real key"))

	_, err := New(config.ApnsConfig{KeyPath: badKey})
	require.Error(t, err)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
