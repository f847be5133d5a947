package cli

import "fmt"

func Locate(device string) error {
	body := map[string]any{
		"command": "location.get",
		"params":  map[string]any{"accuracy": "precise"},
	}
	if device != "" {
		body["device_id"] = device
	}

	resp, err := apiRequest("POST", "/api/command", body)
	if err != nil {
		return err
	}

	data, _ := resp["data"].(map[string]any)
	if data == nil {
		printPretty(resp)
		return nil
	}
	lat, hasLat := data["lat"]
	lon, hasLon := data["lon"]
	if !hasLat || !hasLon {
		printPretty(data)
		return nil
	}
	fmt.Printf("Location: %v, %v\n", lat, lon)
	if acc, ok := data["accuracy"]; ok {
		fmt.Printf("Accuracy: %vm\n", acc)
	}
	return nil
}
