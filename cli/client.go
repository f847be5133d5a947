// Package cli implements the omcli command-line surface: thin HTTP callers
// over the server's REST API.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/imroc/req/v3"

	"github.com/P5ina/open-mobile-cli/server/config"
)

var httpClient = req.C().SetUserAgent("omcli")

// apiRequest loads the local config, sends method+path with an optional JSON
// body against the configured server, and returns the decoded JSON response.
// A non-2xx status is surfaced as an error carrying the response body.
func apiRequest(method, path string, body any) (map[string]any, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	r := httpClient.R().SetHeader("Authorization", "Bearer "+cfg.Server.APIKey)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = r.SetHeader("Content-Type", "application/json").SetBody(data)
	}

	resp, err := r.Send(method, cfg.Server.URL+path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	raw := resp.Bytes()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(raw))
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		// Some endpoints (e.g. /api/devices) return a top-level array;
		// callers that expect one use apiRequestList instead.
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// apiRequestList is apiRequest for endpoints whose successful response body
// is a JSON array rather than an object.
func apiRequestList(method, path string) ([]map[string]any, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.R().
		SetHeader("Authorization", "Bearer "+cfg.Server.APIKey).
		Send(method, cfg.Server.URL+path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	raw := resp.Bytes()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(raw))
	}

	var out []map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return out, nil
}
