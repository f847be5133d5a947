package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/P5ina/open-mobile-cli/server/config"
)

func withTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("OMCLI_DATA_DIR", t.TempDir())
	cfg := &config.Config{Server: config.ServerConfig{URL: srv.URL, APIKey: "test-key"}}
	require.NoError(t, cfg.Save())
	return srv
}

func TestApiRequestSendsBearerTokenAndDecodesObject(t *testing.T) {
	var gotAuth string
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})

	resp, err := apiRequest("GET", "/api/status", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "ok", resp["status"])
}

func TestApiRequestSendsJSONBodyOnPost(t *testing.T) {
	var gotBody map[string]any
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})

	_, err := apiRequest("POST", "/api/command", map[string]any{"command": "alarm.stop"})
	require.NoError(t, err)
	assert.Equal(t, "alarm.stop", gotBody["command"])
}

func TestApiRequestSurfacesServerErrors(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"device not found"}`))
	})

	_, err := apiRequest("GET", "/api/status", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device not found")
}

func TestApiRequestListDecodesArray(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "dev-1", "name": "Phone", "online": true},
		})
	})

	devices, err := apiRequestList("GET", "/api/devices")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "dev-1", devices[0]["id"])
}
