package cli

import "fmt"

func SleepStart(device string) error {
	body := map[string]any{"command": "sleep.start", "params": map[string]any{}}
	if device != "" {
		body["device_id"] = device
	}
	resp, err := apiRequest("POST", "/api/command", body)
	if err != nil {
		return err
	}
	if resp["status"] == "ok" {
		fmt.Println("Sleep mode activated, screen will stay on")
		return nil
	}
	printPretty(resp)
	return nil
}

func SleepStop(device string) error {
	body := map[string]any{"command": "sleep.stop", "params": map[string]any{}}
	if device != "" {
		body["device_id"] = device
	}
	resp, err := apiRequest("POST", "/api/command", body)
	if err != nil {
		return err
	}
	if resp["status"] == "ok" {
		fmt.Println("Sleep mode deactivated")
		return nil
	}
	printPretty(resp)
	return nil
}
