package cli

import "fmt"

func Pair(code string) error {
	resp, err := apiRequest("POST", "/api/devices/pair", map[string]any{"code": code})
	if err != nil {
		return err
	}
	deviceID, _ := resp["device_id"].(string)
	name, _ := resp["name"].(string)
	if deviceID == "" {
		deviceID = "?"
	}
	if name == "" {
		name = "?"
	}
	fmt.Printf("Paired: %s (%s)\n", name, deviceID)
	return nil
}
