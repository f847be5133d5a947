package cli

import "fmt"

func AlarmStart(sound, message, device string) error {
	params := map[string]any{"sound": sound}
	if message != "" {
		params["message"] = message
	}
	body := map[string]any{"command": "alarm.start", "params": params}
	if device != "" {
		body["device_id"] = device
	}

	resp, err := apiRequest("POST", "/api/command", body)
	if err != nil {
		return err
	}
	if resp["status"] == "ok" {
		fmt.Println("Alarm started")
		return nil
	}
	printPretty(resp)
	return nil
}

func AlarmStop(device string) error {
	body := map[string]any{"command": "alarm.stop", "params": map[string]any{}}
	if device != "" {
		body["device_id"] = device
	}

	resp, err := apiRequest("POST", "/api/command", body)
	if err != nil {
		return err
	}
	if resp["status"] == "ok" {
		fmt.Println("Alarm stopped")
		return nil
	}
	printPretty(resp)
	return nil
}
